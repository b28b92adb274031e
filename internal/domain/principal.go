package domain

import "strings"

// Role is the caller's authorization level.
type Role string

const (
	RoleAnonymous    Role = "ANONYMOUS"
	RoleUser         Role = "USER"
	RoleCompanyOwner Role = "COMPANY_OWNER"
	RoleAdmin        Role = "ADMIN"
	RoleSuperAdmin   Role = "SUPER_ADMIN"
)

// ParseRole normalizes a role claim. Unknown or empty values map to
// RoleAnonymous.
func ParseRole(s string) Role {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleUser, RoleCompanyOwner, RoleAdmin, RoleSuperAdmin:
		return r
	}
	return RoleAnonymous
}

// Principal identifies the caller of a state-changing operation.
type Principal struct {
	UserID string
	Role   Role
}

// Anonymous is the principal of an unauthenticated request.
var Anonymous = Principal{Role: RoleAnonymous}

// IsAuthenticated reports whether the principal carries a user id.
func (p Principal) IsAuthenticated() bool {
	return p.UserID != "" && p.Role != RoleAnonymous
}

// IsAdmin reports whether the principal may moderate reviews and reports.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleSuperAdmin
}
