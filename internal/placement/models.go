// Package placement holds the placement entity: a child occupying a daycare
// seat. A placement with a nil end date is active; a child should hold at
// most one active placement at a time.
package placement

import (
	"time"

	"daycareplanner/pkg/domain"
)

type Placement struct {
	ID        domain.PlacementID
	ChildID   domain.ChildID
	DaycareID domain.DaycareID
	// ChoiceID is a back-reference to the accepted application choice, kept
	// for the audit trail. It is not an ownership edge.
	ChoiceID  domain.ChoiceID
	StartDate time.Time
	EndDate   *time.Time
	CreatedAt time.Time
}

// Active reports whether the placement currently occupies a seat.
func (p *Placement) Active() bool { return p.EndDate == nil }
