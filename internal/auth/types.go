package auth

import "errors"

// Role represents an authorisation tier.
type Role string

const (
	// RoleViewer can read alerts, organizations, venues and devices.
	RoleViewer Role = "viewer"

	// RoleAdmin can additionally register, update and delete devices.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleAdmin}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrForbidden    = errors.New("auth: insufficient permissions")
)
