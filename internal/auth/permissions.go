package auth

import "context"

// Permission represents a named capability in the portal.
type Permission string

// Permission constants.
const (
	PermMaterialCreate Permission = "material:create"
	PermEventCreate    Permission = "event:create"
	PermForumPost      Permission = "forum:post"
	PermNoticeCreate   Permission = "notice:create"
	PermUserList       Permission = "user:list"
	PermAuditRead      Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleStudent: {
		PermMaterialCreate,
		PermEventCreate,
		PermForumPost,
	},
	RoleFaculty: {
		PermMaterialCreate,
		PermEventCreate,
		PermForumPost,
		PermNoticeCreate,
	},
	RoleAdmin: {
		PermMaterialCreate,
		PermEventCreate,
		PermForumPost,
		PermNoticeCreate,
		PermUserList,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}

// AllowedRoles returns the roles that hold perm, in ValidRoles order.
func AllowedRoles(perm Permission) []Role {
	var roles []Role
	for _, r := range ValidRoles {
		if HasPermission(r, perm) {
			roles = append(roles, r)
		}
	}
	return roles
}

// Authorize checks role against an explicit allow-list.
func Authorize(id Identity, allowed ...Role) error {
	if id.ID == "" {
		return ErrUnauthenticated
	}
	for _, r := range allowed {
		if id.Role == r {
			return nil
		}
	}
	return ErrForbidden
}

// Require checks that the identity in ctx holds perm.
func Require(ctx context.Context, perm Permission) error {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	return Authorize(id, AllowedRoles(perm)...)
}
