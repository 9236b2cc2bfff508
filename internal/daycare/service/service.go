// Package service implements the daycare directory and admin management.
// The public directory is cached in Redis when one is configured; every
// daycare mutation invalidates the cache.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"daycareplanner/internal/audit"
	"daycareplanner/internal/daycare"
	"daycareplanner/internal/daycare/store"
	platformredis "daycareplanner/internal/platform/redis"
	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/platform/sentinel"
	"daycareplanner/pkg/requestcontext"
)

const (
	directoryCacheKey = "daycares:directory"
	directoryCacheTTL = 5 * time.Minute
)

// Store is the daycare store surface the service needs.
type Store interface {
	FindByID(ctx context.Context, id domain.DaycareID) (*daycare.Daycare, error)
	ListActive(ctx context.Context) ([]*daycare.Daycare, error)
	Create(ctx context.Context, dc *daycare.Daycare) error
	Update(ctx context.Context, id domain.DaycareID, patch store.UpdatePatch) error
	AddAdministrator(ctx context.Context, userID domain.UserID, daycareID domain.DaycareID) error
	IsAdmin(ctx context.Context, userID domain.UserID, daycareID domain.DaycareID) (bool, error)
}

// StoreTx runs fn against a transaction-bound daycare store. Creation writes
// the daycare and its first administrator atomically.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(store Store) error) error
}

// Auditor records state-changing actions; emission must never block.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store   Store
	tx      StoreTx
	cache   *platformredis.Client
	auditor Auditor
	logger  *slog.Logger
}

// NewService builds the daycare service. cache may be nil; the directory is
// then served straight from the store.
func NewService(s Store, tx StoreTx, cache *platformredis.Client, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{store: s, tx: tx, cache: cache, auditor: auditor, logger: logger}
}

// ListActive returns the public directory. Cache misses and cache errors fall
// through to the store; a cache failure never fails the request.
func (s *Service) ListActive(ctx context.Context) ([]*daycare.Daycare, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, directoryCacheKey).Bytes()
		if err == nil {
			var cached []*daycare.Daycare
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	daycares, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list daycares")
	}

	if s.cache != nil {
		if raw, err := json.Marshal(daycares); err == nil {
			if err := s.cache.Set(ctx, directoryCacheKey, raw, directoryCacheTTL).Err(); err != nil {
				s.logger.WarnContext(ctx, "cache daycare directory", "error", err)
			}
		}
	}
	return daycares, nil
}

// Get returns one daycare by ID.
func (s *Service) Get(ctx context.Context, id domain.DaycareID) (*daycare.Daycare, error) {
	dc, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "daycare not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load daycare")
	}
	return dc, nil
}

// CreateInput is a new daycare registration.
type CreateInput struct {
	Name              string
	Address           string
	City              string
	Province          string
	PostalCode        string
	Phone             string
	Email             string
	Capacity          int
	WaitlistPolicy    string
	AgeRangeMin       int
	AgeRangeMax       int
	Languages         []string
	HasSubsidyProgram bool
	Description       string
}

// Create registers a daycare and makes the creator its first administrator
// in the same transaction. Open to daycare admins and system admins; the
// role gate sits in the handler.
func (s *Service) Create(ctx context.Context, actor domain.Actor, input CreateInput) (*daycare.Daycare, error) {
	if input.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if input.Capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "capacity must be positive")
	}

	now := requestcontext.Now(ctx)
	dc := &daycare.Daycare{
		ID:                domain.DaycareID(uuid.New()),
		Name:              input.Name,
		Address:           input.Address,
		City:              input.City,
		Province:          input.Province,
		PostalCode:        input.PostalCode,
		Phone:             input.Phone,
		Email:             input.Email,
		Capacity:          input.Capacity,
		WaitlistPolicy:    waitlist.ParsePolicy(input.WaitlistPolicy),
		AgeRangeMin:       input.AgeRangeMin,
		AgeRangeMax:       input.AgeRangeMax,
		Languages:         input.Languages,
		HasSubsidyProgram: input.HasSubsidyProgram,
		Description:       input.Description,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.tx.RunInTx(ctx, func(store Store) error {
		if err := store.Create(ctx, dc); err != nil {
			return err
		}
		return store.AddAdministrator(ctx, actor.UserID, dc.ID)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateDirectory(ctx)
	s.auditor.Emit(ctx, audit.Event{
		Timestamp:  now,
		ActorID:    actor.UserID,
		Action:     "create",
		EntityType: "daycare",
		EntityID:   dc.ID.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return dc, nil
}

// Update applies a partial update. The actor must administer the daycare;
// system admins bypass that check.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id domain.DaycareID, patch store.UpdatePatch) (*daycare.Daycare, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if !actor.IsSystemAdmin() {
		isAdmin, err := s.store.IsAdmin(ctx, actor.UserID, id)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check daycare administrator")
		}
		if !isAdmin {
			return nil, dErrors.New(dErrors.CodeForbidden, "not an administrator of this daycare")
		}
	}

	if err := s.store.Update(ctx, id, patch); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "daycare not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "update daycare")
	}

	s.invalidateDirectory(ctx)
	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		Action:     "update",
		EntityType: "daycare",
		EntityID:   id.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return s.Get(ctx, id)
}

// AddAdministrator grants a user admin rights on a daycare. System admins only.
func (s *Service) AddAdministrator(ctx context.Context, actor domain.Actor, userID domain.UserID, daycareID domain.DaycareID) error {
	if !actor.IsSystemAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "only system admins can assign daycare administrators")
	}
	if _, err := s.Get(ctx, daycareID); err != nil {
		return err
	}
	if err := s.store.AddAdministrator(ctx, userID, daycareID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "add daycare administrator")
	}
	s.auditor.Emit(ctx, audit.Event{
		ActorID:    actor.UserID,
		Action:     "add_administrator",
		EntityType: "daycare",
		EntityID:   daycareID.String(),
		Changes:    map[string]any{"user_id": userID.String()},
		RequestID:  requestcontext.RequestID(ctx),
	})
	return nil
}

func (s *Service) invalidateDirectory(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, directoryCacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "invalidate daycare directory cache", "error", err)
	}
}
