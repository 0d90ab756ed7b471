// Package redis opens the shared go-redis client backing the evaluation cache
// and the role session store.
package redis

import (
	"cmp"
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"verigate/internal/platform/config"
)

type Client struct {
	*redis.Client
}

// New dials Redis and pings it once. A blank URL means Redis is disabled and
// yields a nil client with no error.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = cmp.Or(cfg.PoolSize, opts.PoolSize)
	opts.MinIdleConns = cmp.Or(cfg.MinIdleConns, opts.MinIdleConns)
	opts.DialTimeout = cmp.Or(cfg.DialTimeout, opts.DialTimeout)
	opts.ReadTimeout = cmp.Or(cfg.ReadTimeout, opts.ReadTimeout)
	opts.WriteTimeout = cmp.Or(cfg.WriteTimeout, opts.WriteTimeout)

	c := &Client{Client: redis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}
	return c, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
