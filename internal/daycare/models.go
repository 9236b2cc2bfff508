// Package daycare holds the daycare entity and its admin membership.
package daycare

import (
	"time"

	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
)

type Daycare struct {
	ID         domain.DaycareID
	Name       string
	Address    string
	City       string
	Province   string
	PostalCode string
	Phone      string
	Email      string

	Capacity int
	// CurrentEnrollment is a cached aggregate of active placements. It is
	// mutated only inside the same transaction as the placement insert or
	// end that justifies the change; the transaction is its sole
	// consistency boundary.
	CurrentEnrollment int

	// WaitlistPolicy is the stored default ordering; a waitlist request may
	// override it for a single read.
	WaitlistPolicy waitlist.Policy

	AgeRangeMin       int
	AgeRangeMax       int
	Languages         []string
	HasSubsidyProgram bool
	Description       string
	IsActive          bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
