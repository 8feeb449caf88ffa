// README: Authenticated caller identity and roles.
package types

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
	// RoleSystem attributes changes made by the engine itself (e.g. pending expiry).
	RoleSystem Role = "system"
)

// ParseRole maps a token role claim onto a Role. Accounts without a claim are riders.
func ParseRole(v string) Role {
	switch Role(v) {
	case RoleDriver, RoleAdmin:
		return Role(v)
	default:
		return RoleRider
	}
}

// Actor is the party performing an operation.
type Actor struct {
	ID   ID
	Role Role
}
