package audit

import (
	"time"

	"daycareplanner/pkg/domain"
)

// Event records one state-changing action for the audit log. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time
	ActorID    domain.UserID
	Action     string
	EntityType string
	EntityID   string
	Changes    map[string]any
	RequestID  string
}
