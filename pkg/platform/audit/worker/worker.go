package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	audit "verigate/pkg/platform/audit"
)

// Worker drains queued audit events, persisting them and forwarding a copy
// to the sink. It returns when the inbox is closed and empty.
type Worker struct {
	store  audit.Store
	sink   audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, sink audit.Sink, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		Deliver(ctx, w.store, w.sink, w.logger, event)
	}
}

// Deliver persists one event and forwards it to the sink. Failures are
// logged; callers that need fail-closed semantics append to the store themselves.
func Deliver(ctx context.Context, store audit.Store, sink audit.Sink, logger *slog.Logger, event audit.Event) {
	if store != nil {
		if err := store.Append(ctx, event); err != nil && logger != nil {
			logger.ErrorContext(ctx, "failed to persist audit event",
				"action", event.Action,
				"error", err,
			)
		}
	}
	Forward(ctx, sink, logger, event)
}

// Forward publishes event to sink keyed by user so per-user ordering holds.
func Forward(ctx context.Context, sink audit.Sink, logger *slog.Logger, event audit.Event) {
	if sink == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := sink.Publish(ctx, event.UserID.String(), payload); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to forward audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
