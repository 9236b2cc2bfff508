package store

import (
	"context"
	"sort"
	"sync"

	"daycareplanner/internal/daycare"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

type adminKey struct {
	userID    domain.UserID
	daycareID domain.DaycareID
}

// Memory is the in-memory store used by unit tests.
type Memory struct {
	mu       sync.RWMutex
	daycares map[domain.DaycareID]*daycare.Daycare
	admins   map[adminKey]bool
}

func NewMemory() *Memory {
	return &Memory{
		daycares: make(map[domain.DaycareID]*daycare.Daycare),
		admins:   make(map[adminKey]bool),
	}
}

func (s *Memory) FindByID(_ context.Context, id domain.DaycareID) (*daycare.Daycare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dc, ok := s.daycares[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *dc
	return &copied, nil
}

func (s *Memory) ListActive(_ context.Context) ([]*daycare.Daycare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*daycare.Daycare
	for _, dc := range s.daycares {
		if dc.IsActive {
			copied := *dc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Memory) Create(_ context.Context, dc *daycare.Daycare) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.daycares[dc.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *dc
	s.daycares[dc.ID] = &copied
	return nil
}

func (s *Memory) Update(_ context.Context, id domain.DaycareID, patch UpdatePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.daycares[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if patch.Name != nil {
		dc.Name = *patch.Name
	}
	if patch.Address != nil {
		dc.Address = *patch.Address
	}
	if patch.City != nil {
		dc.City = *patch.City
	}
	if patch.Province != nil {
		dc.Province = *patch.Province
	}
	if patch.PostalCode != nil {
		dc.PostalCode = *patch.PostalCode
	}
	if patch.Phone != nil {
		dc.Phone = *patch.Phone
	}
	if patch.Email != nil {
		dc.Email = *patch.Email
	}
	if patch.Capacity != nil {
		dc.Capacity = *patch.Capacity
	}
	if patch.WaitlistPolicy != nil {
		dc.WaitlistPolicy = *patch.WaitlistPolicy
	}
	if patch.Languages != nil {
		dc.Languages = append([]string(nil), (*patch.Languages)...)
	}
	if patch.HasSubsidyProgram != nil {
		dc.HasSubsidyProgram = *patch.HasSubsidyProgram
	}
	if patch.Description != nil {
		dc.Description = *patch.Description
	}
	if patch.IsActive != nil {
		dc.IsActive = *patch.IsActive
	}
	return nil
}

func (s *Memory) AddAdministrator(_ context.Context, userID domain.UserID, daycareID domain.DaycareID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[adminKey{userID: userID, daycareID: daycareID}] = true
	return nil
}

func (s *Memory) IsAdmin(_ context.Context, userID domain.UserID, daycareID domain.DaycareID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins[adminKey{userID: userID, daycareID: daycareID}], nil
}

func (s *Memory) IncrementEnrollment(_ context.Context, id domain.DaycareID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.daycares[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	dc.CurrentEnrollment++
	return nil
}

func (s *Memory) DecrementEnrollment(_ context.Context, id domain.DaycareID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc, ok := s.daycares[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if dc.CurrentEnrollment > 0 {
		dc.CurrentEnrollment--
	}
	return nil
}
