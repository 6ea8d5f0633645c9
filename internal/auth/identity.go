package auth

// Role is the access level carried by an authenticated identity.
type Role string

const (
	RoleResident Role = "resident"
	RoleOperator Role = "operator"
	RoleSupport  Role = "support"
	RoleAdmin    Role = "admin"
	// RoleSystem is used by the server itself, e.g. compensating cancellations.
	RoleSystem Role = "system"
)

// SystemActorID identifies automated actions in the audit trail.
const SystemActorID = "00000000-0000-0000-0000-000000000000"

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleResident, RoleOperator, RoleSupport, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Elevated reports whether r may act on bookings it does not own. Operators
// are further limited to their own building.
func (r Role) Elevated() bool {
	switch r {
	case RoleOperator, RoleSupport, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// Identity is what the session layer vouches for about a caller.
type Identity struct {
	UserID     string
	Email      string
	Role       Role
	BuildingID string
}

// System returns the identity used for automated actions.
func System() Identity {
	return Identity{UserID: SystemActorID, Role: RoleSystem}
}
