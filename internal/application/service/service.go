// Package service implements the application lifecycle: submission with
// ranked choices, the parent's application listing, and withdrawal.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daycareplanner/internal/application"
	"daycareplanner/internal/audit"
	"daycareplanner/internal/child"
	"daycareplanner/internal/daycare"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/platform/sentinel"
	"daycareplanner/pkg/requestcontext"
)

// Store is the application store surface the service needs.
type Store interface {
	CreateApplication(ctx context.Context, app *application.Application) error
	CreateChoice(ctx context.Context, choice *application.Choice) error
	FindApplicationByID(ctx context.Context, id domain.ApplicationID) (*application.Application, error)
	ChildHasActiveApplication(ctx context.Context, childID domain.ChildID) (bool, error)
	WithdrawAll(ctx context.Context, id domain.ApplicationID, at time.Time) error
	ListByParent(ctx context.Context, parentID domain.UserID) ([]*application.Summary, error)
}

// ChildStore reads children for ownership checks.
type ChildStore interface {
	FindByID(ctx context.Context, id domain.ChildID) (*child.Child, error)
}

// DaycareStore reads daycares to validate choices.
type DaycareStore interface {
	FindByID(ctx context.Context, id domain.DaycareID) (*daycare.Daycare, error)
}

// StoreTx runs fn against a transaction-bound application store. Submission
// writes the application and all its choices atomically.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(store Store) error) error
}

// Auditor records state-changing actions; emission must never block.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store    Store
	children ChildStore
	daycares DaycareStore
	tx       StoreTx
	auditor  Auditor
	logger   *slog.Logger
}

func NewService(store Store, children ChildStore, daycares DaycareStore, tx StoreTx, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		children: children,
		daycares: daycares,
		tx:       tx,
		auditor:  auditor,
		logger:   logger,
	}
}

// SubmitInput is a new application: one child, ordered daycare choices.
type SubmitInput struct {
	ChildID            domain.ChildID
	DesiredStartDate   time.Time
	Notes              string
	OptInParentNetwork bool
	DaycareIDs         []domain.DaycareID
}

// Submit creates the application and one pending choice per daycare, ranked
// in the order given. A child may only hold one application with pending or
// waitlisted choices at a time.
func (s *Service) Submit(ctx context.Context, actor domain.Actor, input SubmitInput) (*application.Application, []*application.Choice, error) {
	if len(input.DaycareIDs) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "at least one daycare choice is required")
	}
	if input.DesiredStartDate.IsZero() {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "desired start date is required")
	}
	seen := make(map[domain.DaycareID]bool, len(input.DaycareIDs))
	for _, daycareID := range input.DaycareIDs {
		if seen[daycareID] {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "duplicate daycare choice")
		}
		seen[daycareID] = true
	}

	c, err := s.children.FindByID(ctx, input.ChildID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "child not found")
	}
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load child")
	}
	if c.ParentID != actor.UserID && !actor.IsSystemAdmin() {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "child belongs to another parent")
	}

	for _, daycareID := range input.DaycareIDs {
		dc, err := s.daycares.FindByID(ctx, daycareID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "unknown daycare choice")
		}
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load daycare")
		}
		if !dc.IsActive {
			return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "daycare is not accepting applications")
		}
	}

	active, err := s.store.ChildHasActiveApplication(ctx, input.ChildID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "check active application")
	}
	if active {
		return nil, nil, dErrors.New(dErrors.CodeConflict, "child already has an active application")
	}

	now := requestcontext.Now(ctx)
	app := &application.Application{
		ID:                 domain.ApplicationID(uuid.New()),
		ChildID:            input.ChildID,
		ParentID:           c.ParentID,
		ApplicationDate:    now,
		DesiredStartDate:   input.DesiredStartDate,
		Notes:              input.Notes,
		OptInParentNetwork: input.OptInParentNetwork,
	}
	choices := make([]*application.Choice, 0, len(input.DaycareIDs))
	for i, daycareID := range input.DaycareIDs {
		choices = append(choices, &application.Choice{
			ID:              domain.ChoiceID(uuid.New()),
			ApplicationID:   app.ID,
			DaycareID:       daycareID,
			PreferenceRank:  i + 1,
			Status:          application.StatusPending,
			StatusUpdatedAt: now,
			CreatedAt:       now,
		})
	}

	err = s.tx.RunInTx(ctx, func(store Store) error {
		if err := store.CreateApplication(ctx, app); err != nil {
			return err
		}
		for _, choice := range choices {
			if err := store.CreateChoice(ctx, choice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "application submitted",
		"application_id", app.ID.String(),
		"child_id", input.ChildID.String(),
		"choices", len(choices),
	)
	s.auditor.Emit(ctx, audit.Event{
		Timestamp:  now,
		ActorID:    actor.UserID,
		Action:     "create",
		EntityType: "application",
		EntityID:   app.ID.String(),
		Changes:    map[string]any{"choices": len(choices)},
		RequestID:  requestcontext.RequestID(ctx),
	})
	return app, choices, nil
}

// ListByParent returns the actor's applications with their choices.
func (s *Service) ListByParent(ctx context.Context, actor domain.Actor) ([]*application.Summary, error) {
	summaries, err := s.store.ListByParent(ctx, actor.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list applications")
	}
	return summaries, nil
}

// Withdraw marks every choice of the application withdrawn. Only the owning
// parent or a system admin may withdraw; withdrawing twice is a no-op.
func (s *Service) Withdraw(ctx context.Context, actor domain.Actor, id domain.ApplicationID) error {
	app, err := s.store.FindApplicationByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load application")
	}
	if app.ParentID != actor.UserID && !actor.IsSystemAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "application belongs to another parent")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.WithdrawAll(ctx, id, now); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "withdraw application")
	}

	s.auditor.Emit(ctx, audit.Event{
		Timestamp:  now,
		ActorID:    actor.UserID,
		Action:     "withdraw",
		EntityType: "application",
		EntityID:   id.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return nil
}
