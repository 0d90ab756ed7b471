// Package worker runs background maintenance for the verification module.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	defaultBatchSize = 100
	defaultTimeout   = 30 * time.Second
)

// StaleRefresher retries evaluations that were served stale.
type StaleRefresher interface {
	RefreshStale(ctx context.Context, limit int) (int, error)
}

// Refresher schedules StaleRefresher runs on a cron spec. Runs never
// overlap; a tick that arrives while a run is in progress is skipped.
type Refresher struct {
	target    StaleRefresher
	logger    *slog.Logger
	batchSize int
	timeout   time.Duration
	cron      *cron.Cron

	mu      sync.Mutex
	running bool
}

type Option func(*Refresher)

func WithBatchSize(n int) Option {
	return func(r *Refresher) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRefresher(target StaleRefresher, logger *slog.Logger, opts ...Option) *Refresher {
	r := &Refresher{
		target:    target,
		logger:    logger,
		batchSize: defaultBatchSize,
		timeout:   defaultTimeout,
		cron:      cron.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start registers the job under spec ("@every 1m", "*/5 * * * *") and starts
// the scheduler.
func (r *Refresher) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, func() { r.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid refresher schedule %q: %w", spec, err)
	}
	r.cron.Start()
	r.logger.Info("stale evaluation refresher started", "schedule", spec)
	return nil
}

// Stop halts the scheduler and waits for a running job to finish or ctx to
// expire.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce performs a single refresh pass. It reports whether it ran.
func (r *Refresher) RunOnce(ctx context.Context) bool {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Debug("stale refresh already running, skipping tick")
		return false
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	refreshed, err := r.target.RefreshStale(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("stale evaluation refresh failed", "error", err, "refreshed", refreshed)
		return true
	}
	if refreshed > 0 {
		r.logger.Info("stale evaluations refreshed", "refreshed", refreshed, "duration", time.Since(start))
	}
	return true
}
