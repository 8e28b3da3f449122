package rolesync

// Role is a user's authorization role
type Role = string

const (
	// RoleUser is the default role every mirrored profile starts with
	RoleUser Role = "user"
	// RoleAdmin marks elevated accounts
	RoleAdmin Role = "admin"
)

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// AllRoles returns the closed role vocabulary
func AllRoles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, IsValidRole(role)
}
