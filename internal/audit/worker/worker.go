// Package worker drains the audit inbox into persistent storage.
package worker

import (
	"context"
	"log/slog"

	"daycareplanner/internal/audit"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event audit.Event) error
}

// Worker consumes audit events from a channel and persists them. A store
// failure is logged and the worker keeps draining; audit loss is preferable
// to a stalled inbox.
type Worker struct {
	store  Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(store Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.Error("append audit event",
					"action", event.Action,
					"entity_type", event.EntityType,
					"error", err,
				)
			}
		}
	}
}
