// Package waitlist implements the ordering policy engine: given the
// candidates for a daycare, produce the order admins review them in.
// Everything here is pure and in-memory; storage assembles candidates, this
// package only sorts them.
package waitlist

import (
	"time"

	"daycareplanner/internal/application"
	"daycareplanner/pkg/domain"
)

// Candidate is one pending or waitlisted choice enriched with the
// application, child, and parent data the policies and the admin view need.
type Candidate struct {
	ChoiceID       domain.ChoiceID          `json:"choice_id"`
	PreferenceRank int                      `json:"preference_rank"`
	Status         application.ChoiceStatus `json:"status"`

	ApplicationID    domain.ApplicationID `json:"application_id"`
	ApplicationDate  time.Time            `json:"application_date"`
	DesiredStartDate time.Time            `json:"desired_start_date"`

	ChildID               domain.ChildID `json:"child_id"`
	ChildFirstName        string         `json:"first_name"`
	ChildLastName         string         `json:"last_name"`
	DateOfBirth           time.Time      `json:"date_of_birth"`
	IsInuk                bool           `json:"is_inuk"`
	HasSpecialNeeds       bool           `json:"has_special_needs"`
	LanguagesSpokenAtHome []string       `json:"languages_spoken_at_home"`
	SiblingsInCare        []string       `json:"siblings_in_care"`

	ParentEmail     string `json:"parent_email"`
	ParentPhone     string `json:"parent_phone"`
	ParentFirstName string `json:"parent_first_name"`
	ParentLastName  string `json:"parent_last_name"`

	// HasCurrentPlacement is true when the child holds any placement with a
	// null end date, at any daycare including this one. The current daycare
	// fields identify where; they are empty when the flag is false. Consumed
	// by the enrolled_elsewhere policy and the admin UI.
	HasCurrentPlacement bool              `json:"has_current_placement"`
	CurrentDaycareID    *domain.DaycareID `json:"current_daycare_id,omitempty"`
	CurrentDaycareName  string            `json:"current_daycare_name,omitempty"`
}
