package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycareplanner/internal/audit"
	auditstore "daycareplanner/internal/audit/store"
)

type recordingStore struct {
	mu     sync.Mutex
	events []audit.Event
	fail   int
}

func (s *recordingStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("storage unavailable")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingStore) appended() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestWorkerDrainsInbox(t *testing.T) {
	store := auditstore.NewMemory()
	inbox := make(chan audit.Event, 4)
	w := New(store, inbox, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	inbox <- audit.Event{Action: "create", EntityType: "child"}
	inbox <- audit.Event{Action: "withdraw", EntityType: "application"}

	waitFor(t, func() bool { return len(store.Events()) == 2 })
	events := store.Events()
	assert.Equal(t, "create", events[0].Action)
	assert.Equal(t, "withdraw", events[1].Action)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerKeepsDrainingAfterStoreFailure(t *testing.T) {
	store := &recordingStore{fail: 1}
	inbox := make(chan audit.Event, 4)
	w := New(store, inbox, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	inbox <- audit.Event{Action: "lost"}
	inbox <- audit.Event{Action: "kept"}

	waitFor(t, func() bool { return len(store.appended()) == 1 })
	assert.Equal(t, "kept", store.appended()[0].Action)
}
