package store

import (
	"context"
	"sync"

	"daycareplanner/internal/audit"
)

// Memory collects audit events in order; used by unit tests.
type Memory struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewMemory() *Memory { return &Memory{} }

func (s *Memory) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *Memory) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event(nil), s.events...)
}
