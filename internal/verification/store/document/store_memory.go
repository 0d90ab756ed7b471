package document

import (
	"context"
	"sort"
	"sync"
	"time"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in process. Decisions are serialized by the
// store mutex, so only one decision per document can win.
type InMemoryStore struct {
	mu      sync.RWMutex
	docs    map[id.DocumentID]*models.Document
	byOwner map[id.UserID][]id.DocumentID
}

func New() *InMemoryStore {
	return &InMemoryStore{
		docs:    make(map[id.DocumentID]*models.Document),
		byOwner: make(map[id.UserID][]id.DocumentID),
	}
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[userID]
	out := make([]models.Document, 0, len(ids))
	for _, docID := range ids {
		out = append(out, *s.docs[docID].Clone())
	}
	return out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return doc.Clone(), nil
}

// Upload stores doc and returns the record it supersedes, if any. Uploading
// over an approved record fails with sentinel.ErrConflict.
func (s *InMemoryStore) Upload(_ context.Context, doc *models.Document) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return nil, sentinel.ErrConflict
	}

	var owned []models.Document
	for _, docID := range s.byOwner[doc.OwnerID] {
		if d := s.docs[docID]; d.Type == doc.Type {
			owned = append(owned, *d)
		}
	}
	var previous *models.Document
	if prev, ok := models.LatestByType(owned)[doc.Type]; ok {
		if prev.Status == models.DocumentApproved {
			return nil, sentinel.ErrConflict
		}
		previous = prev.Clone()
	}

	s.docs[doc.ID] = doc.Clone()
	s.byOwner[doc.OwnerID] = append(s.byOwner[doc.OwnerID], doc.ID)
	return previous, nil
}

// Decide applies a reviewer decision. A document that is no longer pending
// yields sentinel.ErrAlreadyUsed and stays unchanged.
func (s *InMemoryStore) Decide(_ context.Context, docID id.DocumentID, decision models.Decision, reason, reviewer string, now time.Time) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !doc.CanDecide() {
		return doc.Clone(), sentinel.ErrAlreadyUsed
	}
	doc.ApplyDecision(decision, reason, reviewer, now)
	return doc.Clone(), nil
}

// ListPending returns pending documents oldest first.
func (s *InMemoryStore) ListPending(_ context.Context, limit int) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, doc := range s.docs {
		if doc.Status == models.DocumentPending {
			out = append(out, *doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
