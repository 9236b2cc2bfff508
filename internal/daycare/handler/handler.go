// Package handler exposes the daycare directory, daycare administration, and
// the ranked waitlist view over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"daycareplanner/internal/daycare"
	"daycareplanner/internal/daycare/service"
	"daycareplanner/internal/daycare/store"
	"daycareplanner/internal/platform/middleware"
	"daycareplanner/internal/transport/http/shared"
	"daycareplanner/internal/waitlist"
	waitlistservice "daycareplanner/internal/waitlist/service"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/requestcontext"
)

// DaycareService is the daycare operations surface.
type DaycareService interface {
	ListActive(ctx context.Context) ([]*daycare.Daycare, error)
	Get(ctx context.Context, id domain.DaycareID) (*daycare.Daycare, error)
	Create(ctx context.Context, actor domain.Actor, input service.CreateInput) (*daycare.Daycare, error)
	Update(ctx context.Context, actor domain.Actor, id domain.DaycareID, patch store.UpdatePatch) (*daycare.Daycare, error)
	AddAdministrator(ctx context.Context, actor domain.Actor, userID domain.UserID, daycareID domain.DaycareID) error
}

// WaitlistService builds the ranked waitlist view.
type WaitlistService interface {
	Build(ctx context.Context, actor domain.Actor, daycareID domain.DaycareID, policyOverride string) (*waitlistservice.View, error)
}

type Handler struct {
	daycares     DaycareService
	waitlists    WaitlistService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(daycares DaycareService, waitlists WaitlistService, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		daycares:     daycares,
		waitlists:    waitlists,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register wires the daycare routes. Directory reads are public; everything
// else requires a bearer token and the right role.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/daycares", h.handleList)
	r.Get("/api/daycares/{daycareID}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.With(middleware.RequireRole(h.logger, domain.RoleDaycareAdmin, domain.RoleSystemAdmin)).
			Post("/api/daycares", h.handleCreate)
		r.With(middleware.RequireRole(h.logger, domain.RoleSystemAdmin)).
			Post("/api/daycares/{daycareID}/administrators", h.handleAddAdministrator)
		r.With(middleware.RequireRole(h.logger, domain.RoleDaycareAdmin, domain.RoleSystemAdmin)).
			Patch("/api/daycares/{daycareID}", h.handleUpdate)
		r.With(middleware.RequireRole(h.logger, domain.RoleDaycareAdmin, domain.RoleSystemAdmin)).
			Get("/api/daycares/{daycareID}/waitlist", h.handleWaitlist)
	})
}

type daycareResponse struct {
	ID                domain.DaycareID `json:"id"`
	Name              string           `json:"name"`
	Address           string           `json:"address,omitempty"`
	City              string           `json:"city,omitempty"`
	Province          string           `json:"province,omitempty"`
	PostalCode        string           `json:"postal_code,omitempty"`
	Phone             string           `json:"phone,omitempty"`
	Email             string           `json:"email,omitempty"`
	Capacity          int              `json:"capacity"`
	CurrentEnrollment int              `json:"current_enrollment"`
	WaitlistPolicy    string           `json:"waitlist_policy"`
	AgeRangeMin       int              `json:"age_range_min"`
	AgeRangeMax       int              `json:"age_range_max"`
	Languages         []string         `json:"languages"`
	HasSubsidyProgram bool             `json:"has_subsidy_program"`
	Description       string           `json:"description,omitempty"`
	IsActive          bool             `json:"is_active"`
}

func toDaycareResponse(dc *daycare.Daycare) daycareResponse {
	return daycareResponse{
		ID:                dc.ID,
		Name:              dc.Name,
		Address:           dc.Address,
		City:              dc.City,
		Province:          dc.Province,
		PostalCode:        dc.PostalCode,
		Phone:             dc.Phone,
		Email:             dc.Email,
		Capacity:          dc.Capacity,
		CurrentEnrollment: dc.CurrentEnrollment,
		WaitlistPolicy:    string(dc.WaitlistPolicy),
		AgeRangeMin:       dc.AgeRangeMin,
		AgeRangeMax:       dc.AgeRangeMax,
		Languages:         dc.Languages,
		HasSubsidyProgram: dc.HasSubsidyProgram,
		Description:       dc.Description,
		IsActive:          dc.IsActive,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	daycares, err := h.daycares.ListActive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list daycares", "error", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]daycareResponse, 0, len(daycares))
	for _, dc := range daycares {
		out = append(out, toDaycareResponse(dc))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"daycares": out})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseDaycareID(chi.URLParam(r, "daycareID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	dc, err := h.daycares.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"daycare": toDaycareResponse(dc)})
}

type createDaycareRequest struct {
	Name              string   `json:"name"`
	Address           string   `json:"address"`
	City              string   `json:"city"`
	Province          string   `json:"province"`
	PostalCode        string   `json:"postal_code"`
	Phone             string   `json:"phone"`
	Email             string   `json:"email"`
	Capacity          int      `json:"capacity"`
	WaitlistPolicy    string   `json:"waitlist_policy"`
	AgeRangeMin       int      `json:"age_range_min"`
	AgeRangeMax       int      `json:"age_range_max"`
	Languages         []string `json:"languages"`
	HasSubsidyProgram bool     `json:"has_subsidy_program"`
	Description       string   `json:"description"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createDaycareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	input := service.CreateInput{
		Name:              req.Name,
		Address:           req.Address,
		City:              req.City,
		Province:          req.Province,
		PostalCode:        req.PostalCode,
		Phone:             req.Phone,
		Email:             req.Email,
		Capacity:          req.Capacity,
		WaitlistPolicy:    req.WaitlistPolicy,
		AgeRangeMin:       req.AgeRangeMin,
		AgeRangeMax:       req.AgeRangeMax,
		Languages:         req.Languages,
		HasSubsidyProgram: req.HasSubsidyProgram,
		Description:       req.Description,
	}

	dc, err := h.daycares.Create(ctx, requestcontext.Actor(ctx), input)
	if err != nil {
		h.logger.WarnContext(ctx, "create daycare", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"daycare": toDaycareResponse(dc)})
}

type updateDaycareRequest struct {
	Name              *string   `json:"name"`
	Address           *string   `json:"address"`
	City              *string   `json:"city"`
	Province          *string   `json:"province"`
	PostalCode        *string   `json:"postal_code"`
	Phone             *string   `json:"phone"`
	Email             *string   `json:"email"`
	Capacity          *int      `json:"capacity"`
	WaitlistPolicy    *string   `json:"waitlist_policy"`
	Languages         *[]string `json:"languages"`
	HasSubsidyProgram *bool     `json:"has_subsidy_program"`
	Description       *string   `json:"description"`
	IsActive          *bool     `json:"is_active"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseDaycareID(chi.URLParam(r, "daycareID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateDaycareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	patch := store.UpdatePatch{
		Name:              req.Name,
		Address:           req.Address,
		City:              req.City,
		Province:          req.Province,
		PostalCode:        req.PostalCode,
		Phone:             req.Phone,
		Email:             req.Email,
		Capacity:          req.Capacity,
		Languages:         req.Languages,
		HasSubsidyProgram: req.HasSubsidyProgram,
		Description:       req.Description,
		IsActive:          req.IsActive,
	}
	if req.WaitlistPolicy != nil {
		policy := waitlist.ParsePolicy(*req.WaitlistPolicy)
		patch.WaitlistPolicy = &policy
	}

	dc, err := h.daycares.Update(ctx, requestcontext.Actor(ctx), id, patch)
	if err != nil {
		h.logger.WarnContext(ctx, "update daycare", "daycare_id", id.String(), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"daycare": toDaycareResponse(dc)})
}

type addAdministratorRequest struct {
	UserID string `json:"user_id"`
}

func (h *Handler) handleAddAdministrator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	daycareID, err := domain.ParseDaycareID(chi.URLParam(r, "daycareID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req addAdministratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	userID, err := domain.ParseUserID(req.UserID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.daycares.AddAdministrator(ctx, requestcontext.Actor(ctx), userID, daycareID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleWaitlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseDaycareID(chi.URLParam(r, "daycareID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	view, err := h.waitlists.Build(ctx, requestcontext.Actor(ctx), id, r.URL.Query().Get("policy"))
	if err != nil {
		h.logger.WarnContext(ctx, "build waitlist view", "daycare_id", id.String(), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, view)
}
