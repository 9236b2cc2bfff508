package store

import (
	"context"
	"sync"
	"time"

	"daycareplanner/internal/placement"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

// Memory is the in-memory store used by unit tests.
type Memory struct {
	mu         sync.RWMutex
	placements map[domain.PlacementID]*placement.Placement
}

func NewMemory() *Memory {
	return &Memory{placements: make(map[domain.PlacementID]*placement.Placement)}
}

func (s *Memory) Create(_ context.Context, p *placement.Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.placements[p.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *p
	s.placements[p.ID] = &copied
	return nil
}

func (s *Memory) FindByID(_ context.Context, id domain.PlacementID) (*placement.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.placements[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *Memory) FindActiveByChoice(_ context.Context, choiceID domain.ChoiceID) (*placement.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.placements {
		if p.ChoiceID == choiceID && p.EndDate == nil {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) End(_ context.Context, id domain.PlacementID, endDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.placements[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.EndDate != nil {
		return sentinel.ErrConflict
	}
	end := endDate
	p.EndDate = &end
	return nil
}

// All returns every stored placement; test helper.
func (s *Memory) All() []*placement.Placement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*placement.Placement, 0, len(s.placements))
	for _, p := range s.placements {
		copied := *p
		out = append(out, &copied)
	}
	return out
}
