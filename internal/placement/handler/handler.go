// Package handler exposes choice status transitions and placement lifecycle
// operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"daycareplanner/internal/placement"
	"daycareplanner/internal/placement/service"
	"daycareplanner/internal/platform/middleware"
	"daycareplanner/internal/transport/http/shared"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

// Service is the transition and placement operations surface.
type Service interface {
	UpdateChoiceStatus(ctx context.Context, actor domain.Actor, choiceID domain.ChoiceID, rawStatus, notes string) (*service.TransitionResult, error)
	EndPlacement(ctx context.Context, actor domain.Actor, placementID domain.PlacementID, endDate time.Time) (*placement.Placement, error)
}

type Handler struct {
	placements   Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(placements Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{placements: placements, logger: logger, jwtValidator: jwtValidator}
}

// Register wires the transition routes. Both are daycare-admin operations;
// per-daycare membership is enforced in the service.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, domain.RoleDaycareAdmin, domain.RoleSystemAdmin))
		r.Patch("/api/daycares/applications/{choiceID}/status", h.handleUpdateStatus)
		r.Patch("/api/daycares/enrollments/{placementID}/end", h.handleEndPlacement)
	})
}

type updateStatusRequest struct {
	Status      string `json:"status"`
	StatusNotes string `json:"status_notes"`
}

type placementResponse struct {
	ID        domain.PlacementID `json:"id"`
	ChildID   domain.ChildID     `json:"child_id"`
	DaycareID domain.DaycareID   `json:"daycare_id"`
	ChoiceID  domain.ChoiceID    `json:"choice_id"`
	StartDate time.Time          `json:"start_date"`
	EndDate   *time.Time         `json:"end_date,omitempty"`
}

func toPlacementResponse(p *placement.Placement) placementResponse {
	return placementResponse{
		ID:        p.ID,
		ChildID:   p.ChildID,
		DaycareID: p.DaycareID,
		ChoiceID:  p.ChoiceID,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
	}
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	choiceID, err := domain.ParseChoiceID(chi.URLParam(r, "choiceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.placements.UpdateChoiceStatus(ctx, requestcontext.Actor(ctx), choiceID, req.Status, req.StatusNotes)
	if err != nil {
		h.logger.WarnContext(ctx, "update choice status",
			"choice_id", choiceID.String(),
			"status", req.Status,
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}

	resp := map[string]any{"status": string(result.Status)}
	if result.Placement != nil {
		resp["placement"] = toPlacementResponse(result.Placement)
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

type endPlacementRequest struct {
	EndDate string `json:"end_date"`
}

func (h *Handler) handleEndPlacement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	placementID, err := domain.ParsePlacementID(chi.URLParam(r, "placementID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	// An empty body is fine; the end date then defaults to now.
	var req endPlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var endDate time.Time
	if req.EndDate != "" {
		endDate, err = time.Parse(dateLayout, req.EndDate)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "end_date must be YYYY-MM-DD"))
			return
		}
	}

	ended, err := h.placements.EndPlacement(ctx, requestcontext.Actor(ctx), placementID, endDate)
	if err != nil {
		h.logger.WarnContext(ctx, "end placement",
			"placement_id", placementID.String(),
			"error", err,
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"placement": toPlacementResponse(ended)})
}
