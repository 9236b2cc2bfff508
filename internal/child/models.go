// Package child holds the child entity. The demographic attributes here
// (is_inuk, languages spoken at home) are the inputs the waitlist policies
// read; everything else is parent-facing CRUD.
package child

import (
	"time"

	"daycareplanner/pkg/domain"
)

type Child struct {
	ID                      domain.ChildID
	ParentID                domain.UserID
	FirstName               string
	LastName                string
	DateOfBirth             time.Time
	HasSpecialNeeds         bool
	SpecialNeedsDescription string
	LanguagesSpokenAtHome   []string
	SiblingsInCare          []string
	IsInuk                  bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
