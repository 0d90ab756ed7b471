package kafka

import (
	"context"
	"errors"
	"log/slog"

	"verigate/pkg/platform/audit"
	"verigate/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the sink is skipped after repeated failures.
var ErrCircuitOpen = errors.New("audit sink circuit open")

// GuardedSink skips the wrapped sink while its breaker is open. Events are
// already persisted by the audit store before they reach a sink.
type GuardedSink struct {
	sink    audit.Sink
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuardedSink(sink audit.Sink, breaker *circuit.Breaker, logger *slog.Logger) *GuardedSink {
	return &GuardedSink{sink: sink, breaker: breaker, logger: logger}
}

func (g *GuardedSink) Publish(ctx context.Context, key string, value []byte) error {
	if !g.breaker.Allow() {
		return ErrCircuitOpen
	}
	if err := g.sink.Publish(ctx, key, value); err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "audit sink circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "audit sink circuit closed", "breaker", g.breaker.Name())
	}
	return nil
}
