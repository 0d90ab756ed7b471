//go:build integration

package evaluator_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"verigate/internal/verification/evaluator"
	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
	"verigate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *evaluator.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = evaluator.NewRedisCache(s.redis.Client, time.Hour)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCacheSuite) key() evaluator.Key {
	return evaluator.Key{UserID: id.UserID(uuid.New()), Role: models.RoleDriver}
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	key := s.key()
	eval := &models.Evaluation{UserID: key.UserID, Role: key.Role, Status: models.StatusPending, CompletionPercentage: 100}

	s.Require().NoError(s.cache.Store(ctx, key, eval, 0))
	entry, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.True(entry.Current())
	s.Equal(models.StatusPending, entry.Evaluation.Status)
}

func (s *RedisCacheSuite) TestGenerationGuard() {
	ctx := context.Background()
	key := s.key()
	eval := &models.Evaluation{Role: key.Role, Status: models.StatusVerified}

	s.Require().NoError(s.cache.Store(ctx, key, eval, 0))
	s.Require().NoError(s.cache.Invalidate(ctx, key))

	s.ErrorIs(s.cache.Store(ctx, key, eval, 0), sentinel.ErrStaleWrite)

	entry, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.NotNil(entry.Evaluation, "invalidation keeps the last known good value")
	s.False(entry.Current())
	s.Require().NoError(s.cache.Store(ctx, key, eval, entry.Generation))
}

func (s *RedisCacheSuite) TestStaleTracking() {
	ctx := context.Background()
	key := s.key()
	s.Require().NoError(s.cache.Store(ctx, key, &models.Evaluation{Role: key.Role}, 0))
	s.Require().NoError(s.cache.MarkStale(ctx, key))

	keys, err := s.cache.StaleKeys(ctx, 10)
	s.Require().NoError(err)
	s.Equal([]evaluator.Key{key}, keys)

	s.Require().NoError(s.cache.Store(ctx, key, &models.Evaluation{Role: key.Role}, 0))
	keys, err = s.cache.StaleKeys(ctx, 10)
	s.Require().NoError(err)
	s.Empty(keys)
}

func (s *RedisCacheSuite) TestStaleTrackingWithoutCachedValue() {
	ctx := context.Background()
	key := s.key()
	s.Require().NoError(s.cache.MarkStale(ctx, key))

	keys, err := s.cache.StaleKeys(ctx, 10)
	s.Require().NoError(err)
	s.Equal([]evaluator.Key{key}, keys)

	entry, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.True(entry.Stale)
	s.Nil(entry.Evaluation)

	s.Require().NoError(s.cache.Store(ctx, key, &models.Evaluation{Role: key.Role}, entry.Generation))
	keys, err = s.cache.StaleKeys(ctx, 10)
	s.Require().NoError(err)
	s.Empty(keys)
}

// Concurrent writers racing an invalidation: none of the writers that read
// the pre-invalidation generation may land after it.
func (s *RedisCacheSuite) TestConcurrentStoreAndInvalidate() {
	ctx := context.Background()
	key := s.key()
	entry, err := s.cache.Get(ctx, key)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Invalidate(ctx, key))

	var wg sync.WaitGroup
	var stored atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.cache.Store(ctx, key, &models.Evaluation{Role: key.Role}, entry.Generation) == nil {
				stored.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(0), stored.Load())
}
