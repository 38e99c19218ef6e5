// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Default role for standard registered users
	RoleUser UserRole = "USER"

	// Can manage other accounts
	RoleAdmin UserRole = "ADMIN"

	// Unrestricted system access
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

// AdminRoles is the set allowed to list and delete accounts.
var AdminRoles = []UserRole{RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// In reports whether r is a member of allowed.
func (r UserRole) In(allowed ...UserRole) bool {
	for _, candidate := range allowed {
		if r == candidate {
			return true
		}
	}
	return false
}

// IsAdmin reports whether r grants administrative access.
func (r UserRole) IsAdmin() bool {
	return r.In(AdminRoles...)
}

// # Identity

// Identity is the resolved caller attached to an authenticated request.
type Identity struct {
	UserID string
	Email  string
	Role   UserRole
}

// CanAccess reports whether the identity may act on the account with the given id.
func (identity *Identity) CanAccess(accountID string) bool {
	return identity.UserID == accountID || identity.Role.IsAdmin()
}
