// Package publisher emits audit events to a Store and an optional Sink.
//
// Compliance events are always written synchronously and fail closed: the
// caller receives the persistence error and must fail its operation. Other
// categories are queued when an async buffer is configured and dropped when
// the buffer is full.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	id "verigate/pkg/domain"
	audit "verigate/pkg/platform/audit"
	"verigate/pkg/platform/audit/worker"
)

type Publisher struct {
	store  audit.Store
	sink   audit.Sink
	logger *slog.Logger

	queue   chan audit.Event
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

type Option func(*Publisher)

// WithAsyncBuffer queues non-compliance events in a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queue = make(chan audit.Event, n)
		}
	}
}

// WithSink forwards every persisted event to sink.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		w := worker.NewWorker(p.store, p.sink, p.queue, p.logger)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event. Only compliance persistence failures are returned.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if event.Category == audit.CategoryCompliance {
		if err := p.store.Append(ctx, event); err != nil {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "compliance audit failed",
					"action", event.Action,
					"user_id", event.UserID,
					"error", err,
				)
			}
			return fmt.Errorf("compliance audit persistence failed: %w", err)
		}
		worker.Forward(ctx, p.sink, p.logger, event)
		return nil
	}

	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.queue == nil || p.closed {
		worker.Deliver(ctx, p.store, p.sink, p.logger, event)
		return nil
	}
	select {
	case p.queue <- event:
	default:
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, dropping event",
				"action", event.Action,
			)
		}
	}
	return nil
}

// List returns the recorded events for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops accepting queued events and waits for the buffer to drain.
func (p *Publisher) Close() {
	p.closeMu.Lock()
	if p.closed || p.queue == nil {
		p.closed = true
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.closeMu.Unlock()
	p.wg.Wait()
}
