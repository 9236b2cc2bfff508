//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"daycareplanner/internal/application"
	applicationstore "daycareplanner/internal/application/store"
	"daycareplanner/internal/child"
	childstore "daycareplanner/internal/child/store"
	"daycareplanner/internal/daycare"
	daycarestore "daycareplanner/internal/daycare/store"
	"daycareplanner/internal/placement"
	placementstore "daycareplanner/internal/placement/store"
	"daycareplanner/internal/waitlist"
	waitliststore "daycareplanner/internal/waitlist/store"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/testutil/containers"
)

type WaitlistStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer

	store        *waitliststore.Postgres
	applications *applicationstore.Postgres
	children     *childstore.Postgres
	daycares     *daycarestore.Postgres
	placements   *placementstore.Postgres
}

func TestWaitlistStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(WaitlistStoreSuite))
}

func (s *WaitlistStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = waitliststore.NewPostgres(s.postgres.DB)
	s.applications = applicationstore.NewPostgres(s.postgres.DB)
	s.children = childstore.NewPostgres(s.postgres.DB)
	s.daycares = daycarestore.NewPostgres(s.postgres.DB)
	s.placements = placementstore.NewPostgres(s.postgres.DB)
}

func (s *WaitlistStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"placements", "application_choices", "applications", "children",
		"daycare_administrators", "daycares", "users")
	s.Require().NoError(err)
}

func (s *WaitlistStoreSuite) insertParent(ctx context.Context, email string) domain.UserID {
	id := domain.UserID(uuid.New())
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, phone, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5, 'parent')
	`, uuid.UUID(id), email, "867-979-0100", "Aaju", "Qavvik")
	s.Require().NoError(err)
	return id
}

func (s *WaitlistStoreSuite) insertChild(ctx context.Context, parentID domain.UserID, isInuk, hasSpecialNeeds bool, siblings []string) domain.ChildID {
	id := domain.ChildID(uuid.New())
	now := time.Now()
	s.Require().NoError(s.children.Create(ctx, &child.Child{
		ID:                    id,
		ParentID:              parentID,
		FirstName:             "Panik",
		LastName:              "Qavvik",
		DateOfBirth:           time.Date(2023, 5, 12, 0, 0, 0, 0, time.UTC),
		HasSpecialNeeds:       hasSpecialNeeds,
		LanguagesSpokenAtHome: []string{"Inuktitut"},
		SiblingsInCare:        siblings,
		IsInuk:                isInuk,
		CreatedAt:             now,
		UpdatedAt:             now,
	}))
	return id
}

func (s *WaitlistStoreSuite) insertDaycare(ctx context.Context, name string) domain.DaycareID {
	id := domain.DaycareID(uuid.New())
	now := time.Now()
	s.Require().NoError(s.daycares.Create(ctx, &daycare.Daycare{
		ID:             id,
		Name:           name,
		Capacity:       20,
		WaitlistPolicy: waitlist.PolicyApplicationDate,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}))
	return id
}

func (s *WaitlistStoreSuite) insertChoice(ctx context.Context, parentID domain.UserID, childID domain.ChildID,
	daycareID domain.DaycareID, status application.ChoiceStatus, appDate time.Time) domain.ChoiceID {

	appID := domain.ApplicationID(uuid.New())
	s.Require().NoError(s.applications.CreateApplication(ctx, &application.Application{
		ID:               appID,
		ChildID:          childID,
		ParentID:         parentID,
		ApplicationDate:  appDate,
		DesiredStartDate: appDate.AddDate(0, 6, 0),
	}))

	choiceID := domain.ChoiceID(uuid.New())
	s.Require().NoError(s.applications.CreateChoice(ctx, &application.Choice{
		ID:              choiceID,
		ApplicationID:   appID,
		DaycareID:       daycareID,
		PreferenceRank:  1,
		Status:          status,
		StatusUpdatedAt: appDate,
		CreatedAt:       appDate,
	}))
	return choiceID
}

func (s *WaitlistStoreSuite) TestListByDaycare_FiltersAndOrders() {
	ctx := context.Background()
	daycareID := s.insertDaycare(ctx, "Sivummut Daycare")
	otherDaycareID := s.insertDaycare(ctx, "Tumit Daycare")
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sibling := uuid.New()
	parentA := s.insertParent(ctx, "a@example.com")
	childA := s.insertChild(ctx, parentA, true, true, []string{sibling.String()})
	parentB := s.insertParent(ctx, "b@example.com")
	childB := s.insertChild(ctx, parentB, false, false, []string{})
	parentC := s.insertParent(ctx, "c@example.com")
	childC := s.insertChild(ctx, parentC, false, false, []string{})

	// Newer pending, older waitlisted, one rejected, one at another daycare.
	newer := s.insertChoice(ctx, parentA, childA, daycareID, application.StatusPending, base.AddDate(0, 0, 14))
	older := s.insertChoice(ctx, parentB, childB, daycareID, application.StatusWaitlisted, base)
	s.insertChoice(ctx, parentC, childC, daycareID, application.StatusRejected, base.AddDate(0, 0, 7))
	s.insertChoice(ctx, parentC, childC, otherDaycareID, application.StatusPending, base)

	candidates, err := s.store.ListByDaycare(ctx, daycareID)
	s.Require().NoError(err)

	s.Require().Len(candidates, 2)
	s.Equal(older, candidates[0].ChoiceID)
	s.Equal(newer, candidates[1].ChoiceID)

	s.Equal("a@example.com", candidates[1].ParentEmail)
	s.Equal("867-979-0100", candidates[1].ParentPhone)
	s.True(candidates[1].IsInuk)
	s.True(candidates[1].HasSpecialNeeds)
	s.Equal([]string{"Inuktitut"}, candidates[1].LanguagesSpokenAtHome)
	s.Equal([]string{sibling.String()}, candidates[1].SiblingsInCare)
	s.False(candidates[0].HasSpecialNeeds)
	s.Equal(application.StatusWaitlisted, candidates[0].Status)
}

func (s *WaitlistStoreSuite) TestListByDaycare_FlagsActivePlacements() {
	ctx := context.Background()
	daycareID := s.insertDaycare(ctx, "Sivummut Daycare")
	otherDaycareID := s.insertDaycare(ctx, "Iqaluit Infant Centre")
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	parentA := s.insertParent(ctx, "placed@example.com")
	childA := s.insertChild(ctx, parentA, false, false, []string{})
	parentB := s.insertParent(ctx, "formerly@example.com")
	childB := s.insertChild(ctx, parentB, false, false, []string{})

	placed := s.insertChoice(ctx, parentA, childA, daycareID, application.StatusWaitlisted, base)
	formerly := s.insertChoice(ctx, parentB, childB, daycareID, application.StatusWaitlisted, base.AddDate(0, 0, 1))

	// childA is enrolled elsewhere right now; childB's placement has ended.
	elsewhere := s.insertChoice(ctx, parentA, childA, otherDaycareID, application.StatusAccepted, base)
	s.Require().NoError(s.placements.Create(ctx, &placement.Placement{
		ID:        domain.PlacementID(uuid.New()),
		ChildID:   childA,
		DaycareID: otherDaycareID,
		ChoiceID:  elsewhere,
		StartDate: base,
		CreatedAt: base,
	}))
	endedID := domain.PlacementID(uuid.New())
	ended := s.insertChoice(ctx, parentB, childB, otherDaycareID, application.StatusAccepted, base)
	s.Require().NoError(s.placements.Create(ctx, &placement.Placement{
		ID:        endedID,
		ChildID:   childB,
		DaycareID: otherDaycareID,
		ChoiceID:  ended,
		StartDate: base,
		CreatedAt: base,
	}))
	s.Require().NoError(s.placements.End(ctx, endedID, base.AddDate(0, 1, 0)))

	candidates, err := s.store.ListByDaycare(ctx, daycareID)
	s.Require().NoError(err)

	byChoice := map[domain.ChoiceID]waitlist.Candidate{}
	for _, c := range candidates {
		byChoice[c.ChoiceID] = c
	}
	s.Require().Contains(byChoice, placed)
	s.Require().Contains(byChoice, formerly)
	s.True(byChoice[placed].HasCurrentPlacement)
	s.Require().NotNil(byChoice[placed].CurrentDaycareID)
	s.Equal(otherDaycareID, *byChoice[placed].CurrentDaycareID)
	s.Equal("Iqaluit Infant Centre", byChoice[placed].CurrentDaycareName)
	s.False(byChoice[formerly].HasCurrentPlacement)
	s.Nil(byChoice[formerly].CurrentDaycareID)
}
