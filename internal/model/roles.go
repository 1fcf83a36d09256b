package model

// Role names a permission group a user belongs to.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var validRoles = map[Role]struct{}{
	RoleStudent:    {},
	RoleInstructor: {},
	RoleAdmin:      {},
}

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	_, ok := validRoles[r]
	return ok
}

// HasRole reports whether want is present in roles.
func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
