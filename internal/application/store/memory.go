package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"daycareplanner/internal/application"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

// Memory is the in-memory store used by unit tests. It does not resolve
// child or daycare names; ListByParent summaries carry IDs only.
type Memory struct {
	mu           sync.RWMutex
	applications map[domain.ApplicationID]*application.Application
	choices      map[domain.ChoiceID]*application.Choice
}

func NewMemory() *Memory {
	return &Memory{
		applications: make(map[domain.ApplicationID]*application.Application),
		choices:      make(map[domain.ChoiceID]*application.Choice),
	}
}

func (s *Memory) CreateApplication(_ context.Context, app *application.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[app.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *app
	s.applications[app.ID] = &copied
	return nil
}

func (s *Memory) CreateChoice(_ context.Context, choice *application.Choice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.choices[choice.ID]; exists {
		return sentinel.ErrConflict
	}
	copied := *choice
	s.choices[choice.ID] = &copied
	return nil
}

func (s *Memory) FindApplicationByID(_ context.Context, id domain.ApplicationID) (*application.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *app
	return &copied, nil
}

func (s *Memory) FindChoiceByID(_ context.Context, id domain.ChoiceID) (*application.Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	choice, ok := s.choices[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *choice
	return &copied, nil
}

func (s *Memory) UpdateChoiceStatus(_ context.Context, id domain.ChoiceID, status application.ChoiceStatus, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	choice, ok := s.choices[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	choice.Status = status
	choice.StatusNotes = notes
	choice.StatusUpdatedAt = at
	return nil
}

func (s *Memory) ChildHasActiveApplication(_ context.Context, childID domain.ChildID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, choice := range s.choices {
		if choice.Status != application.StatusPending && choice.Status != application.StatusWaitlisted {
			continue
		}
		app, ok := s.applications[choice.ApplicationID]
		if ok && app.ChildID == childID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) WithdrawAll(_ context.Context, id domain.ApplicationID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, choice := range s.choices {
		if choice.ApplicationID == id {
			choice.Status = application.StatusWithdrawn
			choice.StatusUpdatedAt = at
		}
	}
	return nil
}

func (s *Memory) ListByParent(_ context.Context, parentID domain.UserID) ([]*application.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var summaries []*application.Summary
	for _, app := range s.applications {
		if app.ParentID != parentID {
			continue
		}
		summary := &application.Summary{
			ID:               app.ID,
			ApplicationDate:  app.ApplicationDate,
			DesiredStartDate: app.DesiredStartDate,
			Notes:            app.Notes,
		}
		for _, choice := range s.choices {
			if choice.ApplicationID != app.ID {
				continue
			}
			summary.Choices = append(summary.Choices, application.ChoiceSummary{
				ChoiceID:        choice.ID,
				DaycareID:       choice.DaycareID,
				PreferenceRank:  choice.PreferenceRank,
				Status:          choice.Status,
				StatusUpdatedAt: choice.StatusUpdatedAt,
			})
		}
		sort.Slice(summary.Choices, func(i, j int) bool {
			return summary.Choices[i].PreferenceRank < summary.Choices[j].PreferenceRank
		})
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ApplicationDate.After(summaries[j].ApplicationDate)
	})
	return summaries, nil
}

// ChoicesByApplication returns the application's choices in rank order; test
// helper.
func (s *Memory) ChoicesByApplication(id domain.ApplicationID) []*application.Choice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*application.Choice
	for _, choice := range s.choices {
		if choice.ApplicationID == id {
			copied := *choice
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PreferenceRank < out[j].PreferenceRank })
	return out
}
