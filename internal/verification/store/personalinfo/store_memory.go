package personalinfo

import (
	"context"
	"sync"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	infos map[id.UserID]models.PersonalInfo
}

func New() *InMemoryStore {
	return &InMemoryStore{infos: make(map[id.UserID]models.PersonalInfo)}
}

// Get returns sentinel.ErrNotFound when the user never saved personal info.
func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (*models.PersonalInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.infos[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &info, nil
}

// Save upserts the user's personal info.
func (s *InMemoryStore) Save(_ context.Context, info *models.PersonalInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos[info.UserID] = *info
	return nil
}
