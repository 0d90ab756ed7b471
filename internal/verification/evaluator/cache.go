package evaluator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"verigate/internal/verification/models"
	id "verigate/pkg/domain"
	"verigate/pkg/platform/sentinel"
)

// Key identifies one cached evaluation.
type Key struct {
	UserID id.UserID
	Role   models.Role
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.UserID, k.Role)
}

// Entry is what the cache holds for a key.
//
// Generation moves on every Invalidate. The cached Evaluation is current only
// while EvaluatedGeneration == Generation; otherwise it is the last known good
// value and may be served only as stale.
type Entry struct {
	Evaluation          *models.Evaluation
	Generation          uint64
	EvaluatedGeneration uint64
	Stale               bool
}

// Current reports whether the cached evaluation reflects every invalidation.
func (e Entry) Current() bool {
	return e.Evaluation != nil && !e.Stale && e.EvaluatedGeneration == e.Generation
}

// Cache holds last-known-good evaluations with a generation guard against
// responses computed before a newer invalidation.
type Cache interface {
	Get(ctx context.Context, key Key) (Entry, error)
	// Store saves eval only if the key's generation is still gen. It returns
	// sentinel.ErrStaleWrite otherwise.
	Store(ctx context.Context, key Key, eval *models.Evaluation, gen uint64) error
	// Invalidate bumps the generation and keeps the previous evaluation.
	Invalidate(ctx context.Context, key Key) error
	// MarkStale queues key for StaleKeys whether or not an evaluation is
	// cached. Only a successful Store clears the mark.
	MarkStale(ctx context.Context, key Key) error
	StaleKeys(ctx context.Context, limit int) ([]Key, error)
}

// MemoryCache is the in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[Key]*Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[Key]*Entry)}
}

func (c *MemoryCache) Get(_ context.Context, key Key) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, nil
	}
	out := *e
	out.Evaluation = e.Evaluation.Clone()
	return out, nil
}

func (c *MemoryCache) Store(_ context.Context, key Key, eval *models.Evaluation, gen uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &Entry{}
		c.entries[key] = e
	}
	if e.Generation != gen {
		return sentinel.ErrStaleWrite
	}
	e.Evaluation = eval.Clone()
	e.EvaluatedGeneration = gen
	e.Stale = false
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &Entry{}
		c.entries[key] = e
	}
	e.Generation++
	return nil
}

func (c *MemoryCache) MarkStale(_ context.Context, key Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &Entry{}
		c.entries[key] = e
	}
	e.Stale = true
	return nil
}

func (c *MemoryCache) StaleKeys(_ context.Context, limit int) ([]Key, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []Key
	for k, e := range c.entries {
		if e.Stale {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}
