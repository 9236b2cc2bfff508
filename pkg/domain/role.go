package domain

// Role is the coarse authorization role carried in the access token.
type Role string

const (
	RoleParent       Role = "parent"
	RoleDaycareAdmin Role = "daycare_admin"
	RoleFunder       Role = "funder"
	RoleSystemAdmin  Role = "system_admin"
)

// ValidRole reports whether raw names a known role.
func ValidRole(raw string) bool {
	switch Role(raw) {
	case RoleParent, RoleDaycareAdmin, RoleFunder, RoleSystemAdmin:
		return true
	}
	return false
}

// Actor is the authenticated principal performing an operation. Handlers
// build it from request context; services check it against the target
// daycare.
type Actor struct {
	UserID UserID
	Role   Role
}

// IsSystemAdmin reports whether the actor bypasses per-daycare checks.
func (a Actor) IsSystemAdmin() bool { return a.Role == RoleSystemAdmin }
