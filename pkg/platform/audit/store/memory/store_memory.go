// Package memory is the audit store used when no database is configured and
// in service tests.
package memory

import (
	"context"
	"slices"
	"sync"

	id "verigate/pkg/domain"
	audit "verigate/pkg/platform/audit"
)

// InMemoryStore keeps an append-only log. Reads match the Postgres store:
// one user's events, newest first.
type InMemoryStore struct {
	mu  sync.RWMutex
	log []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	s.log = append(s.log, event)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range slices.Backward(s.log) {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
