package store

import (
	"context"
	"sort"
	"sync"

	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
)

// Memory is a seedable in-memory candidate source for unit tests.
type Memory struct {
	mu         sync.RWMutex
	candidates map[domain.DaycareID][]waitlist.Candidate
}

func NewMemory() *Memory {
	return &Memory{candidates: make(map[domain.DaycareID][]waitlist.Candidate)}
}

// Add seeds a candidate for the daycare.
func (s *Memory) Add(daycareID domain.DaycareID, cand waitlist.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[daycareID] = append(s.candidates[daycareID], cand)
}

func (s *Memory) ListByDaycare(_ context.Context, daycareID domain.DaycareID) ([]waitlist.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]waitlist.Candidate(nil), s.candidates[daycareID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ApplicationDate.Before(out[j].ApplicationDate)
	})
	return out, nil
}
