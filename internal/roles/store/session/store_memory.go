// Package session stores role sessions. SwitchCurrentRole is a compare-and-swap
// on the session version so a switch is applied at most once per observed state.
package session

import (
	"context"
	"sync"
	"time"

	"verigate/internal/roles/models"
	vmodels "verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

func New() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.SessionID]*models.Session)}
}

func (s *InMemoryStore) Get(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return sess.Clone(), nil
}

func (s *InMemoryStore) Create(_ context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return sentinel.ErrConflict
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// SwitchCurrentRole applies the switch only when the stored version still
// equals expectedVersion; otherwise it returns sentinel.ErrStaleWrite.
func (s *InMemoryStore) SwitchCurrentRole(_ context.Context, sessionID id.SessionID, expectedVersion uint64, role vmodels.Role, deviceName string, now time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if sess.Version != expectedVersion {
		return nil, sentinel.ErrStaleWrite
	}
	sess.ApplySwitch(role, deviceName, now)
	return sess.Clone(), nil
}
