// Package application holds the application and application-choice entities.
// An application is one submission per child; its choices are the ranked
// links to daycares whose statuses drive the waitlist and placement flows.
package application

import (
	"time"

	"daycareplanner/pkg/domain"
	dErrors "daycareplanner/pkg/domain-errors"
)

// ChoiceStatus is the lifecycle state of an application choice.
type ChoiceStatus string

const (
	StatusPending    ChoiceStatus = "pending"
	StatusWaitlisted ChoiceStatus = "waitlisted"
	StatusAccepted   ChoiceStatus = "accepted"
	StatusRejected   ChoiceStatus = "rejected"
	// StatusWithdrawn is settable only by the parent via the withdraw flow,
	// never by a daycare admin status update.
	StatusWithdrawn ChoiceStatus = "withdrawn"
)

// ParseTargetStatus validates a status value requested by a daycare admin.
// Withdrawn is deliberately excluded: it belongs to the parent.
func ParseTargetStatus(raw string) (ChoiceStatus, error) {
	switch ChoiceStatus(raw) {
	case StatusPending, StatusWaitlisted, StatusAccepted, StatusRejected:
		return ChoiceStatus(raw), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid status: "+raw)
}

// Application is one submission per child per cycle.
type Application struct {
	ID                 domain.ApplicationID
	ChildID            domain.ChildID
	ParentID           domain.UserID
	ApplicationDate    time.Time
	DesiredStartDate   time.Time
	Notes              string
	OptInParentNetwork bool
}

// Choice is the ranked link between an application and a daycare.
type Choice struct {
	ID              domain.ChoiceID
	ApplicationID   domain.ApplicationID
	DaycareID       domain.DaycareID
	PreferenceRank  int
	Status          ChoiceStatus
	StatusNotes     string
	StatusUpdatedAt time.Time
	CreatedAt       time.Time
}

// Summary is the parent-facing view of an application: the child it covers
// plus every choice with its daycare name and current status.
type Summary struct {
	ID               domain.ApplicationID `json:"id"`
	ApplicationDate  time.Time            `json:"application_date"`
	DesiredStartDate time.Time            `json:"desired_start_date"`
	Notes            string               `json:"notes,omitempty"`
	ChildFirstName   string               `json:"child_first_name"`
	ChildLastName    string               `json:"child_last_name"`
	DateOfBirth      time.Time            `json:"date_of_birth"`
	Choices          []ChoiceSummary      `json:"choices"`
}

// ChoiceSummary is one ranked choice within a Summary.
type ChoiceSummary struct {
	ChoiceID        domain.ChoiceID  `json:"choice_id"`
	DaycareID       domain.DaycareID `json:"daycare_id"`
	DaycareName     string           `json:"daycare_name"`
	PreferenceRank  int              `json:"preference_rank"`
	Status          ChoiceStatus     `json:"status"`
	StatusUpdatedAt time.Time        `json:"status_updated_at"`
}
