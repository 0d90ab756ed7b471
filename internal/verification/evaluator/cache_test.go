package evaluator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	key := Key{UserID: id.UserID(uuid.New()), Role: models.RoleMerchant}
	eval := &models.Evaluation{Role: models.RoleMerchant, Status: models.StatusVerified, CompletionPercentage: 100}

	t.Run("empty key has no evaluation", func(t *testing.T) {
		c := NewMemoryCache()
		e, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, e.Evaluation)
		assert.False(t, e.Current())
	})

	t.Run("store at current generation is current", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Store(ctx, key, eval, 0))
		e, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, e.Current())
		assert.Equal(t, models.StatusVerified, e.Evaluation.Status)
	})

	t.Run("invalidate keeps last known good but makes it non-current", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Store(ctx, key, eval, 0))
		require.NoError(t, c.Invalidate(ctx, key))

		e, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, e.Evaluation)
		assert.False(t, e.Current())
		assert.Equal(t, uint64(1), e.Generation)
	})

	t.Run("store computed before an invalidation is refused", func(t *testing.T) {
		c := NewMemoryCache()
		before, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.NoError(t, c.Invalidate(ctx, key))

		err = c.Store(ctx, key, eval, before.Generation)
		require.ErrorIs(t, err, sentinel.ErrStaleWrite)
	})

	t.Run("mark stale lists the key until the next store", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Store(ctx, key, eval, 0))
		require.NoError(t, c.MarkStale(ctx, key))

		keys, err := c.StaleKeys(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []Key{key}, keys)

		require.NoError(t, c.Store(ctx, key, eval, 0))
		keys, err = c.StaleKeys(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("mark stale without a value still queues the key", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.MarkStale(ctx, key))
		keys, err := c.StaleKeys(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []Key{key}, keys)

		entry, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, entry.Stale)
		assert.False(t, entry.Current())

		require.NoError(t, c.Store(ctx, key, eval, entry.Generation))
		keys, err = c.StaleKeys(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("returned evaluation is a copy", func(t *testing.T) {
		c := NewMemoryCache()
		require.NoError(t, c.Store(ctx, key, &models.Evaluation{Steps: []models.StepResult{{StepID: "identity"}}}, 0))
		e, _ := c.Get(ctx, key)
		e.Evaluation.Steps[0].StepID = "mutated"
		again, _ := c.Get(ctx, key)
		assert.Equal(t, "identity", again.Evaluation.Steps[0].StepID)
	})
}
