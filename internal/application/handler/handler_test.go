package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycareplanner/internal/application/service"
	applicationstore "daycareplanner/internal/application/store"
	"daycareplanner/internal/audit"
	"daycareplanner/internal/child"
	childstore "daycareplanner/internal/child/store"
	"daycareplanner/internal/daycare"
	daycarestore "daycareplanner/internal/daycare/store"
	"daycareplanner/internal/platform/middleware"
	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/testutil"
)

type staticValidator struct {
	claims *middleware.JWTClaims
}

func (v staticValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	if v.claims == nil {
		return nil, errors.New("no principal configured")
	}
	return v.claims, nil
}

type memoryTx struct {
	store service.Store
}

func (t *memoryTx) RunInTx(_ context.Context, fn func(store service.Store) error) error {
	return fn(t.store)
}

type noopAuditor struct{}

func (noopAuditor) Emit(context.Context, audit.Event) {}

type env struct {
	router    *chi.Mux
	validator *staticValidator

	parentID  domain.UserID
	childID   domain.ChildID
	daycareID domain.DaycareID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		validator: &staticValidator{},
		parentID:  domain.UserID(uuid.New()),
		childID:   domain.ChildID(uuid.New()),
		daycareID: domain.DaycareID(uuid.New()),
	}

	applications := applicationstore.NewMemory()
	children := childstore.NewMemory()
	daycares := daycarestore.NewMemory()
	require.NoError(t, children.Create(ctx, &child.Child{
		ID:          e.childID,
		ParentID:    e.parentID,
		FirstName:   "Panik",
		LastName:    "Iqaluk",
		DateOfBirth: time.Date(2023, 8, 20, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, daycares.Create(ctx, &daycare.Daycare{
		ID:             e.daycareID,
		Name:           "Tasiuq Daycare",
		WaitlistPolicy: waitlist.PolicyApplicationDate,
		IsActive:       true,
	}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewService(applications, children, daycares, &memoryTx{store: applications}, noopAuditor{}, logger)

	h := New(svc, logger, e.validator)
	e.router = chi.NewRouter()
	h.Register(e.router)
	return e
}

func (e *env) loginAsParent() {
	e.validator.claims = &middleware.JWTClaims{UserID: e.parentID, Role: domain.RoleParent}
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer token")
	return req
}

func (e *env) submitBody() map[string]any {
	return map[string]any{
		"child_id":           e.childID.String(),
		"desired_start_date": "2025-09-01",
		"daycare_ids":        []string{e.daycareID.String()},
	}
}

func TestSubmit_RequiresAuth(t *testing.T) {
	e := newEnv(t)

	rr := testutil.DoRequest(e.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", e.submitBody()))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSubmit_DaycareAdminForbidden(t *testing.T) {
	e := newEnv(t)
	e.validator.claims = &middleware.JWTClaims{UserID: domain.UserID(uuid.New()), Role: domain.RoleDaycareAdmin}

	rr := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", e.submitBody())))

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestSubmit_CreatesRankedChoices(t *testing.T) {
	e := newEnv(t)
	e.loginAsParent()

	rr := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", e.submitBody())))

	require.Equal(t, http.StatusCreated, rr.Code)
	resp := testutil.UnmarshalResponse[struct {
		ApplicationID domain.ApplicationID `json:"application_id"`
		Choices       []choiceResponse     `json:"choices"`
	}](t, rr)
	assert.False(t, resp.ApplicationID.IsNil())
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, 1, resp.Choices[0].PreferenceRank)
	assert.Equal(t, "pending", resp.Choices[0].Status)
}

func TestSubmit_BadDateRejected(t *testing.T) {
	e := newEnv(t)
	e.loginAsParent()
	body := e.submitBody()
	body["desired_start_date"] = "September 1st"

	rr := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", body)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSubmit_DuplicateActiveApplicationConflicts(t *testing.T) {
	e := newEnv(t)
	e.loginAsParent()

	first := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", e.submitBody())))
	require.Equal(t, http.StatusCreated, first.Code)

	second := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", e.submitBody())))
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestListMine_EmptyList(t *testing.T) {
	e := newEnv(t)
	e.loginAsParent()

	rr := testutil.DoRequest(e.router, authed(testutil.NewRequest(t, http.MethodGet, "/api/applications/my-applications")))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"applications":[]}`, rr.Body.String())
}

func TestWithdraw_ThenResubmit(t *testing.T) {
	e := newEnv(t)
	e.loginAsParent()

	created := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", e.submitBody())))
	require.Equal(t, http.StatusCreated, created.Code)
	resp := testutil.UnmarshalResponse[struct {
		ApplicationID domain.ApplicationID `json:"application_id"`
	}](t, created)

	withdraw := testutil.DoRequest(e.router, authed(testutil.NewRequest(t, http.MethodPatch,
		"/api/applications/"+resp.ApplicationID.String()+"/withdraw")))
	assert.Equal(t, http.StatusNoContent, withdraw.Code)

	resubmit := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPost, "/api/applications", e.submitBody())))
	assert.Equal(t, http.StatusCreated, resubmit.Code)
}

func TestWithdraw_UnknownApplication(t *testing.T) {
	e := newEnv(t)
	e.loginAsParent()

	rr := testutil.DoRequest(e.router, authed(testutil.NewRequest(t, http.MethodPatch,
		"/api/applications/"+uuid.NewString()+"/withdraw")))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
