// Package handler exposes parent-facing child management over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"daycareplanner/internal/child"
	"daycareplanner/internal/child/service"
	"daycareplanner/internal/child/store"
	"daycareplanner/internal/platform/middleware"
	"daycareplanner/internal/transport/http/shared"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
	"daycareplanner/pkg/requestcontext"
)

const dateLayout = "2006-01-02"

// Service is the child operations surface.
type Service interface {
	Create(ctx context.Context, actor domain.Actor, input service.CreateInput) (*child.Child, error)
	ListByParent(ctx context.Context, actor domain.Actor) ([]*child.Child, error)
	Update(ctx context.Context, actor domain.Actor, id domain.ChildID, patch store.UpdatePatch) (*child.Child, error)
}

type Handler struct {
	children     Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

func New(children Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{children: children, logger: logger, jwtValidator: jwtValidator}
}

// Register wires the child routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		r.Use(middleware.RequireRole(h.logger, domain.RoleParent, domain.RoleSystemAdmin))
		r.Get("/api/children", h.handleList)
		r.Post("/api/children", h.handleCreate)
		r.Patch("/api/children/{childID}", h.handleUpdate)
	})
}

type childResponse struct {
	ID                      domain.ChildID `json:"id"`
	FirstName               string         `json:"first_name"`
	LastName                string         `json:"last_name"`
	DateOfBirth             string         `json:"date_of_birth"`
	HasSpecialNeeds         bool           `json:"has_special_needs"`
	SpecialNeedsDescription string         `json:"special_needs_description,omitempty"`
	LanguagesSpokenAtHome   []string       `json:"languages_spoken_at_home"`
	SiblingsInCare          []string       `json:"siblings_in_care"`
	IsInuk                  bool           `json:"is_inuk"`
}

func toChildResponse(c *child.Child) childResponse {
	return childResponse{
		ID:                      c.ID,
		FirstName:               c.FirstName,
		LastName:                c.LastName,
		DateOfBirth:             c.DateOfBirth.Format(dateLayout),
		HasSpecialNeeds:         c.HasSpecialNeeds,
		SpecialNeedsDescription: c.SpecialNeedsDescription,
		LanguagesSpokenAtHome:   c.LanguagesSpokenAtHome,
		SiblingsInCare:          c.SiblingsInCare,
		IsInuk:                  c.IsInuk,
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	children, err := h.children.ListByParent(ctx, requestcontext.Actor(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "list children", "error", err)
		shared.WriteError(w, err)
		return
	}
	out := make([]childResponse, 0, len(children))
	for _, c := range children {
		out = append(out, toChildResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"children": out})
}

type createChildRequest struct {
	FirstName               string   `json:"first_name"`
	LastName                string   `json:"last_name"`
	DateOfBirth             string   `json:"date_of_birth"`
	HasSpecialNeeds         bool     `json:"has_special_needs"`
	SpecialNeedsDescription string   `json:"special_needs_description"`
	LanguagesSpokenAtHome   []string `json:"languages_spoken_at_home"`
	SiblingsInCare          []string `json:"siblings_in_care"`
	IsInuk                  bool     `json:"is_inuk"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var birthDate time.Time
	if req.DateOfBirth != "" {
		var err error
		birthDate, err = time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "date_of_birth must be YYYY-MM-DD"))
			return
		}
	}

	c, err := h.children.Create(ctx, requestcontext.Actor(ctx), service.CreateInput{
		FirstName:               req.FirstName,
		LastName:                req.LastName,
		DateOfBirth:             birthDate,
		HasSpecialNeeds:         req.HasSpecialNeeds,
		SpecialNeedsDescription: req.SpecialNeedsDescription,
		LanguagesSpokenAtHome:   req.LanguagesSpokenAtHome,
		SiblingsInCare:          req.SiblingsInCare,
		IsInuk:                  req.IsInuk,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create child", "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{"child": toChildResponse(c)})
}

type updateChildRequest struct {
	FirstName               *string   `json:"first_name"`
	LastName                *string   `json:"last_name"`
	HasSpecialNeeds         *bool     `json:"has_special_needs"`
	SpecialNeedsDescription *string   `json:"special_needs_description"`
	LanguagesSpokenAtHome   *[]string `json:"languages_spoken_at_home"`
	IsInuk                  *bool     `json:"is_inuk"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseChildID(chi.URLParam(r, "childID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req updateChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	c, err := h.children.Update(ctx, requestcontext.Actor(ctx), id, store.UpdatePatch{
		FirstName:               req.FirstName,
		LastName:                req.LastName,
		HasSpecialNeeds:         req.HasSpecialNeeds,
		SpecialNeedsDescription: req.SpecialNeedsDescription,
		LanguagesSpokenAtHome:   req.LanguagesSpokenAtHome,
		IsInuk:                  req.IsInuk,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update child", "child_id", id.String(), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"child": toChildResponse(c)})
}
