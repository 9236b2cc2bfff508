package audit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycareplanner/pkg/domain"
)

func newTestPublisher(buffer int) *Publisher {
	return NewPublisher(buffer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEmitDeliversToInbox(t *testing.T) {
	p := newTestPublisher(4)
	actor := domain.UserID(uuid.New())

	p.Emit(context.Background(), Event{
		ActorID:    actor,
		Action:     "create",
		EntityType: "application",
		EntityID:   uuid.NewString(),
	})

	select {
	case event := <-p.Inbox():
		assert.Equal(t, actor, event.ActorID)
		assert.Equal(t, "create", event.Action)
	default:
		t.Fatal("expected an event in the inbox")
	}
}

func TestEmitStampsMissingTimestamp(t *testing.T) {
	p := newTestPublisher(1)

	p.Emit(context.Background(), Event{Action: "withdraw"})

	event := <-p.Inbox()
	assert.False(t, event.Timestamp.IsZero())
}

func TestEmitKeepsExplicitTimestamp(t *testing.T) {
	p := newTestPublisher(1)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	p.Emit(context.Background(), Event{Action: "withdraw", Timestamp: at})

	event := <-p.Inbox()
	assert.True(t, at.Equal(event.Timestamp))
}

func TestEmitDropsWhenBufferFull(t *testing.T) {
	p := newTestPublisher(1)

	p.Emit(context.Background(), Event{Action: "first"})
	p.Emit(context.Background(), Event{Action: "dropped"})

	event := <-p.Inbox()
	require.Equal(t, "first", event.Action)
	select {
	case extra := <-p.Inbox():
		t.Fatalf("expected second event to be dropped, got %q", extra.Action)
	default:
	}
}
