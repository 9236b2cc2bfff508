// Package handler exposes application submission, listing, and withdrawal
// over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"daycareplanner/internal/application"
	"daycareplanner/internal/application/service"
	"daycareplanner/internal/platform/middleware"
	"daycareplanner/internal/transport/http/shared"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

// Service is the application operations surface.
type Service interface {
	Submit(ctx context.Context, actor domain.Actor, input service.SubmitInput) (*application.Application, []*application.Choice, error)
	ListByParent(ctx context.Context, actor domain.Actor) ([]*application.Summary, error)
	Withdraw(ctx context.Context, actor domain.Actor, id domain.ApplicationID) error
}

type Handler struct {
	applications Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(applications Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{applications: applications, logger: logger, jwtValidator: jwtValidator}
}

// Register wires the application routes. All of them are parent-facing.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, domain.RoleParent, domain.RoleSystemAdmin))
		r.Post("/api/applications", h.handleSubmit)
		r.Get("/api/applications/my-applications", h.handleListMine)
		r.Patch("/api/applications/{applicationID}/withdraw", h.handleWithdraw)
	})
}

type submitRequest struct {
	ChildID            string   `json:"child_id"`
	DesiredStartDate   string   `json:"desired_start_date"`
	Notes              string   `json:"notes"`
	OptInParentNetwork bool     `json:"opt_in_parent_network"`
	DaycareIDs         []string `json:"daycare_ids"`
}

type choiceResponse struct {
	ID             domain.ChoiceID  `json:"id"`
	DaycareID      domain.DaycareID `json:"daycare_id"`
	PreferenceRank int              `json:"preference_rank"`
	Status         string           `json:"status"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	childID, err := domain.ParseChildID(req.ChildID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	startDate, err := time.Parse(dateLayout, req.DesiredStartDate)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "desired_start_date must be YYYY-MM-DD"))
		return
	}
	daycareIDs := make([]domain.DaycareID, 0, len(req.DaycareIDs))
	for _, raw := range req.DaycareIDs {
		id, err := domain.ParseDaycareID(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		daycareIDs = append(daycareIDs, id)
	}

	app, choices, err := h.applications.Submit(ctx, requestcontext.Actor(ctx), service.SubmitInput{
		ChildID:            childID,
		DesiredStartDate:   startDate,
		Notes:              req.Notes,
		OptInParentNetwork: req.OptInParentNetwork,
		DaycareIDs:         daycareIDs,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit application", "error", err)
		shared.WriteError(w, err)
		return
	}

	out := make([]choiceResponse, 0, len(choices))
	for _, choice := range choices {
		out = append(out, choiceResponse{
			ID:             choice.ID,
			DaycareID:      choice.DaycareID,
			PreferenceRank: choice.PreferenceRank,
			Status:         string(choice.Status),
		})
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"application_id": app.ID,
		"choices":        out,
	})
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summaries, err := h.applications.ListByParent(ctx, requestcontext.Actor(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "list applications", "error", err)
		shared.WriteError(w, err)
		return
	}
	if summaries == nil {
		summaries = []*application.Summary{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"applications": summaries})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.applications.Withdraw(ctx, requestcontext.Actor(ctx), id); err != nil {
		h.logger.WarnContext(ctx, "withdraw application", "application_id", id.String(), "error", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
