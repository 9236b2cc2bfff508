package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daycareplanner/internal/audit"
	"daycareplanner/internal/child/store"
	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
)

type auditRecorder struct {
	events []audit.Event
}

func (r *auditRecorder) Emit(_ context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.NewMemory(), &auditRecorder{}, logger)
}

func parent() domain.Actor {
	return domain.Actor{UserID: domain.UserID(uuid.New()), Role: domain.RoleParent}
}

func validInput() CreateInput {
	return CreateInput{
		FirstName:             "Nuka",
		LastName:              "Angutimarik",
		DateOfBirth:           time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		LanguagesSpokenAtHome: []string{"Inuktitut"},
		IsInuk:                true,
	}
}

func TestCreate_RequiresNamesAndBirthDate(t *testing.T) {
	svc := newTestService(t)

	noName := validInput()
	noName.FirstName = ""
	_, err := svc.Create(context.Background(), parent(), noName)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	noBirth := validInput()
	noBirth.DateOfBirth = time.Time{}
	_, err = svc.Create(context.Background(), parent(), noBirth)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCreate_AssignsChildToActor(t *testing.T) {
	svc := newTestService(t)
	actor := parent()

	c, err := svc.Create(context.Background(), actor, validInput())

	require.NoError(t, err)
	assert.Equal(t, actor.UserID, c.ParentID)
	assert.True(t, c.IsInuk)
	assert.False(t, c.ID.IsNil())
}

func TestListByParent_ScopedToActor(t *testing.T) {
	svc := newTestService(t)
	actor := parent()
	_, err := svc.Create(context.Background(), actor, validInput())
	require.NoError(t, err)

	own, err := svc.ListByParent(context.Background(), actor)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	other, err := svc.ListByParent(context.Background(), parent())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUpdate_OtherParentsChildReadsAsNotFound(t *testing.T) {
	svc := newTestService(t)
	owner := parent()
	c, err := svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)

	name := "Siku"
	_, err = svc.Update(context.Background(), parent(), c.ID, store.UpdatePatch{FirstName: &name})

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdate_AppliesPatch(t *testing.T) {
	svc := newTestService(t)
	actor := parent()
	c, err := svc.Create(context.Background(), actor, validInput())
	require.NoError(t, err)

	name := "Siku"
	languages := []string{"Inuktitut", "English"}
	updated, err := svc.Update(context.Background(), actor, c.ID, store.UpdatePatch{
		FirstName:             &name,
		LanguagesSpokenAtHome: &languages,
	})

	require.NoError(t, err)
	assert.Equal(t, "Siku", updated.FirstName)
	assert.Equal(t, languages, updated.LanguagesSpokenAtHome)
	assert.Equal(t, "Angutimarik", updated.LastName)
}
