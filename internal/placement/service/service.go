// Package service implements the status transition and placement lifecycle
// flows. The accept transition is the critical path: status update, placement
// creation, and the enrollment counter move in one transaction or not at all.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daycareplanner/internal/application"
	"daycareplanner/internal/audit"
	"daycareplanner/internal/placement"
	"daycareplanner/internal/platform/metrics"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/platform/sentinel"
	"daycareplanner/pkg/requestcontext"
)

// ChoiceStore reads and mutates application choices.
type ChoiceStore interface {
	FindChoiceByID(ctx context.Context, id domain.ChoiceID) (*application.Choice, error)
	UpdateChoiceStatus(ctx context.Context, id domain.ChoiceID, status application.ChoiceStatus, notes string, at time.Time) error
}

// ApplicationStore reads applications.
type ApplicationStore interface {
	FindApplicationByID(ctx context.Context, id domain.ApplicationID) (*application.Application, error)
}

// PlacementStore reads and mutates placements.
type PlacementStore interface {
	Create(ctx context.Context, p *placement.Placement) error
	FindByID(ctx context.Context, id domain.PlacementID) (*placement.Placement, error)
	FindActiveByChoice(ctx context.Context, choiceID domain.ChoiceID) (*placement.Placement, error)
	End(ctx context.Context, id domain.PlacementID, endDate time.Time) error
}

// DaycareStore covers admin membership and the enrollment counter.
type DaycareStore interface {
	IsAdmin(ctx context.Context, userID domain.UserID, daycareID domain.DaycareID) (bool, error)
	IncrementEnrollment(ctx context.Context, id domain.DaycareID) error
	DecrementEnrollment(ctx context.Context, id domain.DaycareID) error
}

// TxStores bundles the stores a transition transaction touches. Every store
// is bound to the same open transaction.
type TxStores struct {
	Choices      ChoiceStore
	Applications ApplicationStore
	Placements   PlacementStore
	Daycares     DaycareStore
}

// StoreTx runs fn inside a database transaction.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(stores TxStores) error) error
}

// Auditor records state-changing actions; emission must never block.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	choices    ChoiceStore
	placements PlacementStore
	daycares   DaycareStore
	tx         StoreTx
	auditor    Auditor
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(choices ChoiceStore, placements PlacementStore, daycares DaycareStore, tx StoreTx, auditor Auditor, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		choices:    choices,
		placements: placements,
		daycares:   daycares,
		tx:         tx,
		auditor:    auditor,
		metrics:    m,
		logger:     logger,
	}
}

// TransitionResult reports what a status update did. Placement is non-nil
// only when this call created one.
type TransitionResult struct {
	Status    application.ChoiceStatus
	Placement *placement.Placement
}

// UpdateChoiceStatus moves a choice to the requested status. Accepting
// additionally creates a placement and bumps the daycare's enrollment
// counter, all inside one transaction. Re-accepting a choice whose placement
// is still active refreshes the status metadata but creates nothing.
func (s *Service) UpdateChoiceStatus(ctx context.Context, actor domain.Actor, choiceID domain.ChoiceID, rawStatus, notes string) (*TransitionResult, error) {
	status, err := application.ParseTargetStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	choice, err := s.choices.FindChoiceByID(ctx, choiceID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application choice not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load application choice")
	}

	if choice.Status == application.StatusWithdrawn {
		return nil, dErrors.New(dErrors.CodeConflict, "application choice has been withdrawn")
	}

	if err := s.requireAdmin(ctx, actor, choice.DaycareID); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var created *placement.Placement
	err = s.tx.RunInTx(ctx, func(stores TxStores) error {
		if err := stores.Choices.UpdateChoiceStatus(ctx, choiceID, status, notes, now); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "application choice not found")
			}
			return err
		}

		if status != application.StatusAccepted {
			return nil
		}

		// Idempotence probe: an active placement from this choice means a
		// previous accept already did the work.
		_, err := stores.Placements.FindActiveByChoice(ctx, choiceID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		app, err := stores.Applications.FindApplicationByID(ctx, choice.ApplicationID)
		if err != nil {
			return err
		}

		created = &placement.Placement{
			ID:        domain.PlacementID(uuid.New()),
			ChildID:   app.ChildID,
			DaycareID: choice.DaycareID,
			ChoiceID:  choiceID,
			StartDate: app.DesiredStartDate,
			CreatedAt: now,
		}
		if err := stores.Placements.Create(ctx, created); err != nil {
			return err
		}
		return stores.Daycares.IncrementEnrollment(ctx, choice.DaycareID)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	if created != nil {
		s.metrics.PlacementsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "choice status updated",
		"choice_id", choiceID.String(),
		"status", string(status),
		"placement_created", created != nil,
	)
	s.auditor.Emit(ctx, audit.Event{
		Timestamp:  now,
		ActorID:    actor.UserID,
		Action:     "update_status",
		EntityType: "application_choice",
		EntityID:   choiceID.String(),
		Changes:    map[string]any{"status": string(status), "status_notes": notes},
		RequestID:  requestcontext.RequestID(ctx),
	})

	return &TransitionResult{Status: status, Placement: created}, nil
}

// EndPlacement closes a placement and releases its enrollment slot. Ending an
// already-ended placement is a no-op; the counter is only decremented once.
func (s *Service) EndPlacement(ctx context.Context, actor domain.Actor, placementID domain.PlacementID, endDate time.Time) (*placement.Placement, error) {
	p, err := s.placements.FindByID(ctx, placementID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "placement not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load placement")
	}

	if err := s.requireAdmin(ctx, actor, p.DaycareID); err != nil {
		return nil, err
	}

	if p.EndDate != nil {
		return p, nil
	}

	if endDate.IsZero() {
		endDate = requestcontext.Now(ctx)
	}
	// The store's End only matches active placements, so a concurrent end
	// that committed after our read above surfaces as a conflict here. That
	// request already released the slot; this one must not decrement again.
	var endedElsewhere bool
	err = s.tx.RunInTx(ctx, func(stores TxStores) error {
		err := stores.Placements.End(ctx, p.ID, endDate)
		if errors.Is(err, sentinel.ErrConflict) {
			endedElsewhere = true
			return nil
		}
		if err != nil {
			return err
		}
		return stores.Daycares.DecrementEnrollment(ctx, p.DaycareID)
	})
	if err != nil {
		return nil, err
	}
	if endedElsewhere {
		current, err := s.placements.FindByID(ctx, placementID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load placement")
		}
		return current, nil
	}

	s.metrics.PlacementsEnded.Inc()
	s.logger.InfoContext(ctx, "placement ended",
		"placement_id", placementID.String(),
		"daycare_id", p.DaycareID.String(),
	)
	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		Action:     "end_placement",
		EntityType: "placement",
		EntityID:   placementID.String(),
		Changes:    map[string]any{"end_date": endDate},
		RequestID:  requestcontext.RequestID(ctx),
	})

	p.EndDate = &endDate
	return p, nil
}

func (s *Service) requireAdmin(ctx context.Context, actor domain.Actor, daycareID domain.DaycareID) error {
	if actor.IsSystemAdmin() {
		return nil
	}
	isAdmin, err := s.daycares.IsAdmin(ctx, actor.UserID, daycareID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "check daycare administrator")
	}
	if !isAdmin {
		return dErrors.New(dErrors.CodeForbidden, "not an administrator of this daycare")
	}
	return nil
}
