package profile

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

const shardCount = 32

type key struct {
	userID id.UserID
	role   models.Role
}

// InMemoryStore keeps role profiles in process. Execute holds a per-user
// shard lock across validate and mutate.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[key]*models.RoleProfile
	shards   [shardCount]sync.Mutex
}

func New() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[key]*models.RoleProfile)}
}

func (s *InMemoryStore) shard(userID id.UserID) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID.String()))
	return &s.shards[h.Sum32()%shardCount]
}

// Create inserts a new profile. A profile for the same (user, role) yields
// sentinel.ErrConflict.
func (s *InMemoryStore) Create(_ context.Context, p *models.RoleProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{p.UserID, p.Role}
	if _, exists := s.profiles[k]; exists {
		return sentinel.ErrConflict
	}
	s.profiles[k] = p.Clone()
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, userID id.UserID, role models.Role) (*models.RoleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[key{userID, role}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

// ListByUser returns the user's profiles ordered by registration time.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.RoleProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RoleProfile
	for k, p := range s.profiles {
		if k.userID == userID {
			out = append(out, p.Clone())
		}
	}
	sortProfiles(out)
	return out, nil
}

func sortProfiles(ps []*models.RoleProfile) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].Role < ps[j].Role
	})
}

// Execute runs validate then mutate on a copy of the profile while holding
// the user's shard lock, and stores the copy only if validate passed.
func (s *InMemoryStore) Execute(_ context.Context, userID id.UserID, role models.Role, validate func(*models.RoleProfile) error, mutate func(*models.RoleProfile)) (*models.RoleProfile, error) {
	shard := s.shard(userID)
	shard.Lock()
	defer shard.Unlock()

	s.mu.RLock()
	current, ok := s.profiles[key{userID, role}]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	s.mu.Lock()
	s.profiles[key{userID, role}] = working.Clone()
	s.mu.Unlock()
	return working, nil
}
