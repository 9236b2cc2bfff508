// Package service implements parent-facing child management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daycareplanner/internal/audit"
	"daycareplanner/internal/child"
	"daycareplanner/internal/child/store"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/platform/sentinel"
	"daycareplanner/pkg/requestcontext"
)

// Store is the child store surface the service needs.
type Store interface {
	Create(ctx context.Context, c *child.Child) error
	FindByID(ctx context.Context, id domain.ChildID) (*child.Child, error)
	ListByParent(ctx context.Context, parentID domain.UserID) ([]*child.Child, error)
	Update(ctx context.Context, id domain.ChildID, patch store.UpdatePatch) error
}

// Auditor records state-changing actions; emission must never block.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store   Store
	auditor Auditor
	logger  *slog.Logger
}

func NewService(s Store, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{store: s, auditor: auditor, logger: logger}
}

// CreateInput is a new child record under the acting parent.
type CreateInput struct {
	FirstName               string
	LastName                string
	DateOfBirth             time.Time
	HasSpecialNeeds         bool
	SpecialNeedsDescription string
	LanguagesSpokenAtHome   []string
	SiblingsInCare          []string
	IsInuk                  bool
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, input CreateInput) (*child.Child, error) {
	if input.FirstName == "" || input.LastName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "first and last name are required")
	}
	if input.DateOfBirth.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "date of birth is required")
	}

	now := requestcontext.Now(ctx)
	c := &child.Child{
		ID:                      domain.ChildID(uuid.New()),
		ParentID:                actor.UserID,
		FirstName:               input.FirstName,
		LastName:                input.LastName,
		DateOfBirth:             input.DateOfBirth,
		HasSpecialNeeds:         input.HasSpecialNeeds,
		SpecialNeedsDescription: input.SpecialNeedsDescription,
		LanguagesSpokenAtHome:   input.LanguagesSpokenAtHome,
		SiblingsInCare:          input.SiblingsInCare,
		IsInuk:                  input.IsInuk,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create child")
	}

	s.auditor.Emit(ctx, audit.Event{
		Timestamp:  now,
		ActorID:    actor.UserID,
		Action:     "create",
		EntityType: "child",
		EntityID:   c.ID.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return c, nil
}

// ListByParent returns the actor's children.
func (s *Service) ListByParent(ctx context.Context, actor domain.Actor) ([]*child.Child, error) {
	children, err := s.store.ListByParent(ctx, actor.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list children")
	}
	return children, nil
}

// Update applies a partial update to the actor's own child. A child owned by
// another parent reads as not found, never as forbidden, so child IDs cannot
// be probed.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id domain.ChildID, patch store.UpdatePatch) (*child.Child, error) {
	c, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "child not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load child")
	}
	if c.ParentID != actor.UserID && !actor.IsSystemAdmin() {
		return nil, dErrors.New(dErrors.CodeNotFound, "child not found")
	}

	if err := s.store.Update(ctx, id, patch); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update child")
	}

	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		Action:     "update",
		EntityType: "child",
		EntityID:   id.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})

	updated, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reload child")
	}
	return updated, nil
}
