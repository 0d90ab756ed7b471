package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("VERIGATE_ADDR", "")
		t.Setenv("JWT_SIGNING_KEY", "")
		t.Setenv("KAFKA_BROKERS", "")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.True(t, cfg.UsesDevSigningKey())
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, 24*time.Hour, cfg.Verification.CacheTTL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("VERIGATE_ADDR", ":9090")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
		t.Setenv("EVALUATION_CACHE_TTL", "90s")
		t.Setenv("REDIS_POOL_SIZE", "42")
		t.Setenv("ROLE_SESSION_TTL", "2h")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 90*time.Second, cfg.Verification.CacheTTL)
		assert.Equal(t, 42, cfg.Redis.PoolSize)
		assert.Equal(t, 2*time.Hour, cfg.Roles.SessionTTL)
	})

	t.Run("malformed values are reported together", func(t *testing.T) {
		t.Setenv("EVALUATION_CACHE_TTL", "soon")
		t.Setenv("REDIS_POOL_SIZE", "many")

		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "EVALUATION_CACHE_TTL")
		assert.Contains(t, err.Error(), "REDIS_POOL_SIZE")
	})
}
