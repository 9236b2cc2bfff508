package store

import (
	"context"
	"sort"
	"sync"

	"daycareplanner/internal/child"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

// Memory is the in-memory store used by unit tests.
type Memory struct {
	mu       sync.RWMutex
	children map[domain.ChildID]*child.Child
}

func NewMemory() *Memory {
	return &Memory{children: make(map[domain.ChildID]*child.Child)}
}

func (s *Memory) Create(_ context.Context, c *child.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.children[c.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *c
	s.children[c.ID] = &copied
	return nil
}

func (s *Memory) FindByID(_ context.Context, id domain.ChildID) (*child.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.children[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *Memory) ListByParent(_ context.Context, parentID domain.UserID) ([]*child.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*child.Child
	for _, c := range s.children {
		if c.ParentID == parentID {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateOfBirth.After(out[j].DateOfBirth) })
	return out, nil
}

func (s *Memory) Update(_ context.Context, id domain.ChildID, patch UpdatePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.children[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if patch.FirstName != nil {
		c.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		c.LastName = *patch.LastName
	}
	if patch.HasSpecialNeeds != nil {
		c.HasSpecialNeeds = *patch.HasSpecialNeeds
	}
	if patch.SpecialNeedsDescription != nil {
		c.SpecialNeedsDescription = *patch.SpecialNeedsDescription
	}
	if patch.LanguagesSpokenAtHome != nil {
		c.LanguagesSpokenAtHome = append([]string(nil), (*patch.LanguagesSpokenAtHome)...)
	}
	if patch.IsInuk != nil {
		c.IsInuk = *patch.IsInuk
	}
	return nil
}
