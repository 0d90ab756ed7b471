package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

const (
	evalKeyPrefix = "verigate:eval:"
	staleSetKey   = "verigate:eval:stale"

	fieldGeneration = "gen"
	fieldEvalGen    = "eval_gen"
	fieldEvaluation = "eval"
	fieldStale      = "stale"
)

// RedisCache shares evaluations across instances. Each key is a hash holding
// the generation counter and the last known good evaluation.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(key Key) string {
	return evalKeyPrefix + key.String()
}

func parseKey(member string) (Key, bool) {
	userPart, rolePart, ok := strings.Cut(member, ":")
	if !ok {
		return Key{}, false
	}
	userID, err := id.ParseUserID(userPart)
	if err != nil {
		return Key{}, false
	}
	return Key{UserID: userID, Role: models.Role(rolePart)}, true
}

func (c *RedisCache) Get(ctx context.Context, key Key) (Entry, error) {
	vals, err := c.client.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("redis get evaluation: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return decodeEntry(vals)
}

func decodeEntry(vals map[string]string) (Entry, error) {
	var e Entry
	if len(vals) == 0 {
		return e, nil
	}
	e.Generation, _ = strconv.ParseUint(vals[fieldGeneration], 10, 64)
	e.EvaluatedGeneration, _ = strconv.ParseUint(vals[fieldEvalGen], 10, 64)
	e.Stale = vals[fieldStale] == "1"
	if raw, ok := vals[fieldEvaluation]; ok && raw != "" {
		var eval models.Evaluation
		if err := json.Unmarshal([]byte(raw), &eval); err != nil {
			return Entry{}, fmt.Errorf("decode cached evaluation: %w", err)
		}
		e.Evaluation = &eval
	}
	return e, nil
}

// Store uses WATCH so a concurrent Invalidate aborts the write.
func (c *RedisCache) Store(ctx context.Context, key Key, eval *models.Evaluation, gen uint64) error {
	payload, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}
	rk := redisKey(key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, rk, fieldGeneration).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return sentinel.ErrStaleWrite
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rk,
				fieldGeneration, gen,
				fieldEvalGen, gen,
				fieldEvaluation, payload,
				fieldStale, "0",
			)
			if c.ttl > 0 {
				pipe.Expire(ctx, rk, c.ttl)
			}
			pipe.SRem(ctx, staleSetKey, key.String())
			return nil
		})
		return err
	}

	err = c.client.Watch(ctx, txf, rk)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrStaleWrite), errors.Is(err, redis.TxFailedErr):
		return sentinel.ErrStaleWrite
	default:
		return fmt.Errorf("redis store evaluation: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, key Key) error {
	rk := redisKey(key)
	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, rk, fieldGeneration, 1)
	if c.ttl > 0 {
		pipe.Expire(ctx, rk, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis invalidate evaluation: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (c *RedisCache) MarkStale(ctx context.Context, key Key) error {
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, redisKey(key), fieldStale, "1")
	pipe.SAdd(ctx, staleSetKey, key.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mark stale: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (c *RedisCache) StaleKeys(ctx context.Context, limit int) ([]Key, error) {
	var (
		members []string
		err     error
	)
	if limit > 0 {
		members, err = c.client.SRandMemberN(ctx, staleSetKey, int64(limit)).Result()
	} else {
		members, err = c.client.SMembers(ctx, staleSetKey).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("redis stale keys: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	keys := make([]Key, 0, len(members))
	for _, m := range members {
		if k, ok := parseKey(m); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
