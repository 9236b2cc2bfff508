// Package service builds the ranked waitlist view daycare admins review.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"daycareplanner/internal/daycare"
	"daycareplanner/internal/platform/metrics"
	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/platform/sentinel"
	"daycareplanner/pkg/requestcontext"
)

// CandidateSource assembles the pending and waitlisted choices for a daycare.
type CandidateSource interface {
	ListByDaycare(ctx context.Context, daycareID domain.DaycareID) ([]waitlist.Candidate, error)
}

// DaycareStore is the slice of the daycare store the view builder needs.
type DaycareStore interface {
	FindByID(ctx context.Context, id domain.DaycareID) (*daycare.Daycare, error)
	IsAdmin(ctx context.Context, userID domain.UserID, daycareID domain.DaycareID) (bool, error)
}

// View is one ranked waitlist snapshot. Order is not persisted; every request
// recomputes it from the daycare's current policy.
type View struct {
	DaycareID   domain.DaycareID     `json:"daycare_id"`
	Policy      waitlist.Policy      `json:"policy"`
	GeneratedAt time.Time            `json:"generated_at"`
	Waitlist    []waitlist.Candidate `json:"waitlist"`
}

type Service struct {
	candidates CandidateSource
	daycares   DaycareStore
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewService(candidates CandidateSource, daycares DaycareStore, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{candidates: candidates, daycares: daycares, metrics: m, logger: logger}
}

// Build returns the daycare's waitlist ordered by its configured policy, or
// by policyOverride when the caller supplies one. The actor must administer
// the daycare; system admins bypass that check. Existence is checked before
// authorization so a missing daycare reads as not found, not forbidden.
func (s *Service) Build(ctx context.Context, actor domain.Actor, daycareID domain.DaycareID, policyOverride string) (*View, error) {
	dc, err := s.daycares.FindByID(ctx, daycareID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "daycare not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load daycare")
	}

	if !actor.IsSystemAdmin() {
		isAdmin, err := s.daycares.IsAdmin(ctx, actor.UserID, daycareID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check daycare administrator")
		}
		if !isAdmin {
			return nil, dErrors.New(dErrors.CodeForbidden, "not an administrator of this daycare")
		}
	}

	policy := dc.WaitlistPolicy
	if policyOverride != "" {
		policy = waitlist.ParsePolicy(policyOverride)
	}

	candidates, err := s.candidates.ListByDaycare(ctx, daycareID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load waitlist candidates")
	}

	ranked := waitlist.Rank(candidates, policy)
	s.metrics.WaitlistViews.WithLabelValues(string(policy)).Inc()
	s.logger.InfoContext(ctx, "waitlist view built",
		"daycare_id", daycareID.String(),
		"policy", string(policy),
		"candidates", len(ranked),
	)

	return &View{
		DaycareID:   daycareID,
		Policy:      policy,
		GeneratedAt: requestcontext.Now(ctx),
		Waitlist:    ranked,
	}, nil
}
