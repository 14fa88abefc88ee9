package models

// UserRole is the role claim carried in access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleManager    UserRole = "MANAGER"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
)

var knownRoles = map[UserRole]struct{}{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
	RoleManager:    {},
	RoleTeacher:    {},
	RoleStudent:    {},
}

// Valid reports whether the role is one issued by the identity service.
func (r UserRole) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// CrossTenant reports whether the role may act outside its own tenant.
func (r UserRole) CrossTenant() bool {
	return r == RoleSuperAdmin
}
