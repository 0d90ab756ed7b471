package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "verigate/pkg/domain"
	audit "verigate/pkg/platform/audit"
	"verigate/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func (failingStore) ListByUser(context.Context, id.UserID) ([]audit.Event, error) {
	return nil, nil
}

type recordingSink struct {
	mu   sync.Mutex
	keys []string
}

func (s *recordingSink) Publish(_ context.Context, key string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Action: string(audit.EventDocumentUploaded),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventDocumentUploaded), events[0].Action)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := id.UserID(uuid.New())
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			UserID: userID,
			Action: string(audit.EventRoleSwitched),
		}))
	}
	pub.Close()

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_ComplianceFailsClosed(t *testing.T) {
	pub := NewPublisher(failingStore{}, WithAsyncBuffer(10))
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		UserID: id.UserID(uuid.New()),
		Action: string(audit.EventDocumentApproved),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestPublisher_OperationalFailureIsSwallowed(t *testing.T) {
	pub := NewPublisher(failingStore{})
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		UserID: id.UserID(uuid.New()),
		Action: string(audit.EventDocumentUploaded),
	})
	require.NoError(t, err)
}

func TestPublisher_ForwardsToSink(t *testing.T) {
	sink := &recordingSink{}
	pub := NewPublisher(memory.NewInMemoryStore(), WithSink(sink), WithAsyncBuffer(10))

	userID := id.UserID(uuid.New())
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: string(audit.EventProfileSubmitted)}))
	require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Action: string(audit.EventDocumentUploaded)}))
	pub.Close()

	assert.Equal(t, 2, sink.count())
	assert.Equal(t, []string{userID.String(), userID.String()}, sink.keys)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.UserID(uuid.New())
	before := time.Now()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Action: string(audit.EventRoleRegistered),
	}))

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
}

func TestPublisher_BufferFullDoesNotBlock(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	userID := id.UserID(uuid.New())
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pub.Emit(context.Background(), audit.Event{
				UserID: userID,
				Action: string(audit.EventRoleSwitched),
			})
		}()
	}
	wg.Wait()
}
