package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycareplanner/internal/audit"
	"daycareplanner/internal/daycare/store"
	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
)

type memoryTx struct {
	store Store
}

func (t *memoryTx) RunInTx(_ context.Context, fn func(store Store) error) error {
	return fn(t.store)
}

type auditRecorder struct {
	events []audit.Event
}

func (r *auditRecorder) Emit(_ context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

func newTestService(t *testing.T) (*Service, *store.Memory, *auditRecorder) {
	t.Helper()
	mem := store.NewMemory()
	auditor := &auditRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(mem, &memoryTx{store: mem}, nil, auditor, logger)
	return svc, mem, auditor
}

func sysadmin() domain.Actor {
	return domain.Actor{UserID: domain.UserID(uuid.New()), Role: domain.RoleSystemAdmin}
}

func validInput() CreateInput {
	return CreateInput{
		Name:           "Iqaluit Early Learning Centre",
		City:           "Iqaluit",
		Province:       "NU",
		Capacity:       40,
		WaitlistPolicy: "language",
		Languages:      []string{"Inuktitut", "English"},
	}
}

func TestCreate_RegistersDaycareAndCreatorAsAdmin(t *testing.T) {
	svc, mem, auditor := newTestService(t)
	creator := domain.Actor{UserID: domain.UserID(uuid.New()), Role: domain.RoleDaycareAdmin}

	dc, err := svc.Create(context.Background(), creator, validInput())

	require.NoError(t, err)
	assert.Equal(t, waitlist.PolicyLanguage, dc.WaitlistPolicy)
	assert.True(t, dc.IsActive)
	assert.Zero(t, dc.CurrentEnrollment)

	isAdmin, err := mem.IsAdmin(context.Background(), creator.UserID, dc.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	require.Len(t, auditor.events, 1)
	assert.Equal(t, "create", auditor.events[0].Action)
}

func TestCreate_ValidatesInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	noName := validInput()
	noName.Name = ""
	_, err := svc.Create(context.Background(), sysadmin(), noName)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	noCapacity := validInput()
	noCapacity.Capacity = 0
	_, err = svc.Create(context.Background(), sysadmin(), noCapacity)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCreate_UnknownPolicyFallsBackToDefault(t *testing.T) {
	svc, _, _ := newTestService(t)
	input := validInput()
	input.WaitlistPolicy = "fifo"

	dc, err := svc.Create(context.Background(), sysadmin(), input)

	require.NoError(t, err)
	assert.Equal(t, waitlist.PolicyApplicationDate, dc.WaitlistPolicy)
}

func TestGet_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), domain.DaycareID(uuid.New()))

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListActive_OmitsInactiveDaycares(t *testing.T) {
	svc, _, _ := newTestService(t)
	active, err := svc.Create(context.Background(), sysadmin(), validInput())
	require.NoError(t, err)

	inactive := false
	_, err = svc.Update(context.Background(), sysadmin(), active.ID, store.UpdatePatch{IsActive: &inactive})
	require.NoError(t, err)

	listed, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestUpdate_AdminMembershipRequired(t *testing.T) {
	svc, mem, _ := newTestService(t)
	dc, err := svc.Create(context.Background(), sysadmin(), validInput())
	require.NoError(t, err)

	outsider := domain.Actor{UserID: domain.UserID(uuid.New()), Role: domain.RoleDaycareAdmin}
	name := "Renamed"
	_, err = svc.Update(context.Background(), outsider, dc.ID, store.UpdatePatch{Name: &name})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))

	require.NoError(t, mem.AddAdministrator(context.Background(), outsider.UserID, dc.ID))
	updated, err := svc.Update(context.Background(), outsider, dc.ID, store.UpdatePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
}

func TestUpdate_ChangesWaitlistPolicy(t *testing.T) {
	svc, _, _ := newTestService(t)
	dc, err := svc.Create(context.Background(), sysadmin(), validInput())
	require.NoError(t, err)

	policy := waitlist.PolicyRandom
	updated, err := svc.Update(context.Background(), sysadmin(), dc.ID, store.UpdatePatch{WaitlistPolicy: &policy})

	require.NoError(t, err)
	assert.Equal(t, waitlist.PolicyRandom, updated.WaitlistPolicy)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	name := "Ghost"

	_, err := svc.Update(context.Background(), sysadmin(), domain.DaycareID(uuid.New()), store.UpdatePatch{Name: &name})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestAddAdministrator_RequiresSystemAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	dc, err := svc.Create(context.Background(), sysadmin(), validInput())
	require.NoError(t, err)

	actor := domain.Actor{UserID: domain.UserID(uuid.New()), Role: domain.RoleDaycareAdmin}
	err = svc.AddAdministrator(context.Background(), actor, domain.UserID(uuid.New()), dc.ID)

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}
