// Package domain holds typed identifiers and shared enums. Typed IDs make
// cross-entity assignment a compile error: a ChildID can never be passed
// where a DaycareID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "daycareplanner/pkg/domain-errors"
)

// Typed UUID identifiers for every entity reachable from the API surface.
type (
	UserID        uuid.UUID
	ChildID       uuid.UUID
	DaycareID     uuid.UUID
	ApplicationID uuid.UUID
	ChoiceID      uuid.UUID
	PlacementID   uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id ChildID) String() string       { return uuid.UUID(id).String() }
func (id DaycareID) String() string     { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ChoiceID) String() string      { return uuid.UUID(id).String() }
func (id PlacementID) String() string   { return uuid.UUID(id).String() }

// MarshalText renders IDs as canonical UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ChildID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id DaycareID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ApplicationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ChoiceID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id PlacementID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ChildID) UnmarshalText(b []byte) error {
	parsed, err := ParseChildID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DaycareID) UnmarshalText(b []byte) error {
	parsed, err := ParseDaycareID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ChoiceID) UnmarshalText(b []byte) error {
	parsed, err := ParseChoiceID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PlacementID) UnmarshalText(b []byte) error {
	parsed, err := ParsePlacementID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ChildID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id DaycareID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ChoiceID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id PlacementID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the trust-boundary invariant: IDs must be valid,
// non-empty, non-nil UUIDs.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw)
	return UserID(u), err
}

func ParseChildID(raw string) (ChildID, error) {
	u, err := parseUUID(raw)
	return ChildID(u), err
}

func ParseDaycareID(raw string) (DaycareID, error) {
	u, err := parseUUID(raw)
	return DaycareID(u), err
}

func ParseApplicationID(raw string) (ApplicationID, error) {
	u, err := parseUUID(raw)
	return ApplicationID(u), err
}

func ParseChoiceID(raw string) (ChoiceID, error) {
	u, err := parseUUID(raw)
	return ChoiceID(u), err
}

func ParsePlacementID(raw string) (PlacementID, error) {
	u, err := parseUUID(raw)
	return PlacementID(u), err
}
