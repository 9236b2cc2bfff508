package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands audit events to the background worker over a buffered
// channel. Emission never blocks a request: when the buffer is full the
// event is dropped and logged.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the channel the worker consumes.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }

func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"entity_type", event.EntityType,
			"entity_id", event.EntityID,
		)
	}
}
