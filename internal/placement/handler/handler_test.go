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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycareplanner/internal/application"
	applicationstore "daycareplanner/internal/application/store"
	"daycareplanner/internal/audit"
	"daycareplanner/internal/daycare"
	daycarestore "daycareplanner/internal/daycare/store"
	"daycareplanner/internal/placement/service"
	placementstore "daycareplanner/internal/placement/store"
	"daycareplanner/internal/platform/metrics"
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
	stores service.TxStores
}

func (t *memoryTx) RunInTx(_ context.Context, fn func(stores service.TxStores) error) error {
	return fn(t.stores)
}

type noopAuditor struct{}

func (noopAuditor) Emit(context.Context, audit.Event) {}

type env struct {
	router     *chi.Mux
	daycares   *daycarestore.Memory
	placements *placementstore.Memory
	validator  *staticValidator

	daycareID domain.DaycareID
	adminID   domain.UserID
	choiceID  domain.ChoiceID
	startDate time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	e := &env{
		daycares:   daycarestore.NewMemory(),
		placements: placementstore.NewMemory(),
		validator:  &staticValidator{},
		daycareID:  domain.DaycareID(uuid.New()),
		adminID:    domain.UserID(uuid.New()),
		choiceID:   domain.ChoiceID(uuid.New()),
		startDate:  time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
	}

	applications := applicationstore.NewMemory()
	appID := domain.ApplicationID(uuid.New())
	require.NoError(t, e.daycares.Create(ctx, &daycare.Daycare{
		ID:                e.daycareID,
		Name:              "Pirurvik Daycare",
		Capacity:          20,
		CurrentEnrollment: 5,
		WaitlistPolicy:    waitlist.PolicyApplicationDate,
		IsActive:          true,
	}))
	require.NoError(t, e.daycares.AddAdministrator(ctx, e.adminID, e.daycareID))
	require.NoError(t, applications.CreateApplication(ctx, &application.Application{
		ID:               appID,
		ChildID:          domain.ChildID(uuid.New()),
		ParentID:         domain.UserID(uuid.New()),
		ApplicationDate:  time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		DesiredStartDate: e.startDate,
	}))
	require.NoError(t, applications.CreateChoice(ctx, &application.Choice{
		ID:             e.choiceID,
		ApplicationID:  appID,
		DaycareID:      e.daycareID,
		PreferenceRank: 1,
		Status:         application.StatusPending,
	}))

	tx := &memoryTx{stores: service.TxStores{
		Choices:      applications,
		Applications: applications,
		Placements:   e.placements,
		Daycares:     e.daycares,
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	svc := service.NewService(applications, e.placements, e.daycares, tx, noopAuditor{}, m, logger)

	h := New(svc, logger, e.validator)
	e.router = chi.NewRouter()
	h.Register(e.router)
	return e
}

func (e *env) loginAs(userID domain.UserID, role domain.Role) {
	e.validator.claims = &middleware.JWTClaims{UserID: userID, Role: role}
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer token")
	return req
}

func TestUpdateStatus_RequiresAuth(t *testing.T) {
	e := newEnv(t)

	req := testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status",
		map[string]any{"status": "accepted"})
	rr := testutil.DoRequest(e.router, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateStatus_ParentRoleForbidden(t *testing.T) {
	e := newEnv(t)
	e.loginAs(domain.UserID(uuid.New()), domain.RoleParent)

	req := authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status",
		map[string]any{"status": "accepted"}))
	rr := testutil.DoRequest(e.router, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpdateStatus_InvalidStatusRejected(t *testing.T) {
	e := newEnv(t)
	e.loginAs(e.adminID, domain.RoleDaycareAdmin)

	req := authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status",
		map[string]any{"status": "withdrawn"}))
	rr := testutil.DoRequest(e.router, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, e.placements.All())
}

func TestUpdateStatus_AcceptReturnsPlacement(t *testing.T) {
	e := newEnv(t)
	e.loginAs(e.adminID, domain.RoleDaycareAdmin)

	req := authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status",
		map[string]any{"status": "accepted", "status_notes": "spot opened"}))
	rr := testutil.DoRequest(e.router, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := testutil.UnmarshalResponse[struct {
		Status    string             `json:"status"`
		Placement *placementResponse `json:"placement"`
	}](t, rr)
	assert.Equal(t, "accepted", resp.Status)
	require.NotNil(t, resp.Placement)
	assert.Equal(t, e.daycareID, resp.Placement.DaycareID)
	assert.Equal(t, e.choiceID, resp.Placement.ChoiceID)
	assert.True(t, e.startDate.Equal(resp.Placement.StartDate))

	dc, err := e.daycares.FindByID(context.Background(), e.daycareID)
	require.NoError(t, err)
	assert.Equal(t, 6, dc.CurrentEnrollment)
}

func TestUpdateStatus_RepeatAcceptOmitsPlacement(t *testing.T) {
	e := newEnv(t)
	e.loginAs(e.adminID, domain.RoleDaycareAdmin)

	body := map[string]any{"status": "accepted"}
	first := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status", body)))
	require.Equal(t, http.StatusOK, first.Code)

	second := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status", body)))
	require.Equal(t, http.StatusOK, second.Code)

	resp := testutil.UnmarshalResponse[struct {
		Placement *placementResponse `json:"placement"`
	}](t, second)
	assert.Nil(t, resp.Placement)
	assert.Len(t, e.placements.All(), 1)
}

func TestUpdateStatus_UnknownChoice(t *testing.T) {
	e := newEnv(t)
	e.loginAs(e.adminID, domain.RoleDaycareAdmin)

	req := authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+uuid.NewString()+"/status",
		map[string]any{"status": "rejected"}))
	rr := testutil.DoRequest(e.router, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEndPlacement_FullFlow(t *testing.T) {
	e := newEnv(t)
	e.loginAs(e.adminID, domain.RoleDaycareAdmin)

	accept := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status",
		map[string]any{"status": "accepted"})))
	require.Equal(t, http.StatusOK, accept.Code)
	created := testutil.UnmarshalResponse[struct {
		Placement placementResponse `json:"placement"`
	}](t, accept)

	end := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/enrollments/"+created.Placement.ID.String()+"/end",
		map[string]any{"end_date": "2026-06-30"})))
	require.Equal(t, http.StatusOK, end.Code)

	resp := testutil.UnmarshalResponse[struct {
		Placement placementResponse `json:"placement"`
	}](t, end)
	require.NotNil(t, resp.Placement.EndDate)
	assert.Equal(t, "2026-06-30", resp.Placement.EndDate.Format("2006-01-02"))

	dc, err := e.daycares.FindByID(context.Background(), e.daycareID)
	require.NoError(t, err)
	assert.Equal(t, 5, dc.CurrentEnrollment)
}

func TestEndPlacement_EmptyBodyDefaultsToNow(t *testing.T) {
	e := newEnv(t)
	e.loginAs(e.adminID, domain.RoleDaycareAdmin)

	accept := testutil.DoRequest(e.router, authed(testutil.NewJSONRequest(t, http.MethodPatch,
		"/api/daycares/applications/"+e.choiceID.String()+"/status",
		map[string]any{"status": "accepted"})))
	require.Equal(t, http.StatusOK, accept.Code)
	created := testutil.UnmarshalResponse[struct {
		Placement placementResponse `json:"placement"`
	}](t, accept)

	end := testutil.DoRequest(e.router, authed(testutil.NewRequest(t, http.MethodPatch,
		"/api/daycares/enrollments/"+created.Placement.ID.String()+"/end")))
	require.Equal(t, http.StatusOK, end.Code)

	resp := testutil.UnmarshalResponse[struct {
		Placement placementResponse `json:"placement"`
	}](t, end)
	assert.NotNil(t, resp.Placement.EndDate)
}

func TestEndPlacement_UnknownPlacement(t *testing.T) {
	e := newEnv(t)
	e.loginAs(e.adminID, domain.RoleDaycareAdmin)

	rr := testutil.DoRequest(e.router, authed(testutil.NewRequest(t, http.MethodPatch,
		"/api/daycares/enrollments/"+uuid.NewString()+"/end")))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
