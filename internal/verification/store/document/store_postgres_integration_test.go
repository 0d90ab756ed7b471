//go:build integration

package document_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verigate/internal/platform/postgres"
	"verigate/internal/verification/models"
	"verigate/internal/verification/store/document"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/testutil/containers"
)

type PostgresDocumentStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *document.PostgresStore
	owner    id.UserID
}

func TestPostgresDocumentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDocumentStoreSuite))
}

func (s *PostgresDocumentStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.Require().NoError(postgres.Migrate(context.Background(), s.postgres.DB))
	s.store = document.NewPostgres(s.postgres.DB)
}

func (s *PostgresDocumentStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), "documents"))
	s.owner = id.UserID(uuid.New())
}

func (s *PostgresDocumentStoreSuite) newDoc(t models.DocumentType, at time.Time) *models.Document {
	doc, err := models.NewDocument(id.NewDocumentID(), s.owner, t, []string{"blob://a", "blob://b"}, "AB123", at)
	s.Require().NoError(err)
	return doc
}

func (s *PostgresDocumentStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := s.newDoc(models.DocumentIdentity, now)

	prev, err := s.store.Upload(ctx, doc)
	s.Require().NoError(err)
	s.Nil(prev)

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.EvidenceRefs, got.EvidenceRefs)
	s.Equal("AB123", got.DocumentNumber)
	s.Equal(models.DocumentPending, got.Status)
	s.Nil(got.ReviewedAt)

	_, err = s.store.FindByID(ctx, id.NewDocumentID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresDocumentStoreSuite) TestDecisionsAreFinal() {
	ctx := context.Background()
	now := time.Now().UTC()
	doc := s.newDoc(models.DocumentAddress, now)
	_, err := s.store.Upload(ctx, doc)
	s.Require().NoError(err)

	rejected, err := s.store.Decide(ctx, doc.ID, models.DecisionReject, "expired", "rev-1", now)
	s.Require().NoError(err)
	s.Equal(models.DocumentRejected, rejected.Status)
	s.Equal("expired", rejected.RejectionReason)

	_, err = s.store.Decide(ctx, doc.ID, models.DecisionApprove, "", "rev-2", now)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = s.store.Decide(ctx, id.NewDocumentID(), models.DecisionApprove, "", "rev-2", now)
	s.ErrorIs(err, sentinel.ErrNotFound)

	replacement := s.newDoc(models.DocumentAddress, now.Add(time.Second))
	prev, err := s.store.Upload(ctx, replacement)
	s.Require().NoError(err)
	s.Require().NotNil(prev)
	s.Equal(doc.ID, prev.ID)
}

func (s *PostgresDocumentStoreSuite) TestUploadOverApprovedIsRefused() {
	ctx := context.Background()
	now := time.Now().UTC()
	doc := s.newDoc(models.DocumentBusiness, now)
	_, err := s.store.Upload(ctx, doc)
	s.Require().NoError(err)
	_, err = s.store.Decide(ctx, doc.ID, models.DecisionApprove, "", "rev", now)
	s.Require().NoError(err)

	_, err = s.store.Upload(ctx, s.newDoc(models.DocumentBusiness, now.Add(time.Second)))
	s.ErrorIs(err, sentinel.ErrConflict)
}

// TestConcurrentDecisions verifies the conditional update lets exactly one
// reviewer decide a document.
func (s *PostgresDocumentStoreSuite) TestSameInstantReplacementIsLatest() {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)
	rejected := s.newDoc(models.DocumentAddress, at)
	_, err := s.store.Upload(ctx, rejected)
	s.Require().NoError(err)
	_, err = s.store.Decide(ctx, rejected.ID, models.DecisionReject, "blurry scan", "reviewer", at)
	s.Require().NoError(err)

	replacement := s.newDoc(models.DocumentAddress, at)
	prev, err := s.store.Upload(ctx, replacement)
	s.Require().NoError(err)
	s.Require().NotNil(prev)
	s.Equal(rejected.ID, prev.ID)

	prev, err = s.store.Upload(ctx, s.newDoc(models.DocumentAddress, at))
	s.Require().NoError(err)
	s.Require().NotNil(prev)
	s.Equal(replacement.ID, prev.ID, "the later upload in the same instant is the latest")
}

func (s *PostgresDocumentStoreSuite) TestConcurrentDecisions() {
	ctx := context.Background()
	doc := s.newDoc(models.DocumentDriverLicense, time.Now().UTC())
	_, err := s.store.Upload(ctx, doc)
	s.Require().NoError(err)

	const goroutines = 50
	var wg sync.WaitGroup
	var wins, losses atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision := models.DecisionApprove
			if i%2 == 0 {
				decision = models.DecisionReject
			}
			_, err := s.store.Decide(ctx, doc.ID, decision, "reason", "rev", time.Now())
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, sentinel.ErrAlreadyUsed) {
				losses.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one decision should win")
	s.Equal(int32(goroutines-1), losses.Load())
}

func (s *PostgresDocumentStoreSuite) TestListPending() {
	ctx := context.Background()
	now := time.Now().UTC()
	older := s.newDoc(models.DocumentIdentity, now.Add(-time.Hour))
	newer := s.newDoc(models.DocumentAddress, now)
	for _, d := range []*models.Document{newer, older} {
		_, err := s.store.Upload(ctx, d)
		s.Require().NoError(err)
	}

	pending, err := s.store.ListPending(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(older.ID, pending[0].ID)

	docs, err := s.store.ListByUser(ctx, s.owner)
	s.Require().NoError(err)
	s.Len(docs, 2)
}
