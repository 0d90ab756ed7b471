package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"verigate/internal/roles/models"
	vmodels "verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

const keyPrefix = "verigate:session:"

// RedisStore keeps sessions as JSON strings with a sliding TTL. Switches run
// under WATCH so a concurrent writer aborts the transaction.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sessionID id.SessionID) string {
	return keyPrefix + sessionID.String()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis %s: %w", op, errors.Join(sentinel.ErrUnavailable, err))
}

func decode(raw []byte) (*models.Session, error) {
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get session", err)
	}
	return decode(raw)
}

func (s *RedisStore) Create(ctx context.Context, sess *models.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, sessionKey(sess.ID), payload, s.ttl).Result()
	if err != nil {
		return unavailable("create session", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) SwitchCurrentRole(ctx context.Context, sessionID id.SessionID, expectedVersion uint64, role vmodels.Role, deviceName string, now time.Time) (*models.Session, error) {
	key := sessionKey(sessionID)
	var updated *models.Session

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		sess, err := decode(raw)
		if err != nil {
			return err
		}
		if sess.Version != expectedVersion {
			return sentinel.ErrStaleWrite
		}
		sess.ApplySwitch(role, deviceName, now)
		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = sess
		return nil
	}

	err := s.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, sentinel.ErrNotFound
	case errors.Is(err, sentinel.ErrStaleWrite), errors.Is(err, redis.TxFailedErr):
		return nil, sentinel.ErrStaleWrite
	default:
		return nil, unavailable("switch role", err)
	}
}
