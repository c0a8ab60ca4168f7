// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

// Names that can never be deleted, whatever the caller holds.
// The lists are constants of the build, not data.
var (
	protectedPermissions = map[PermissionName]struct{}{
		"users.view":         {},
		"users.create":       {},
		"users.update":       {},
		"users.delete":       {},
		"admins.view":        {},
		"admins.create":      {},
		"admins.update":      {},
		"admins.delete":      {},
		"roles.view":         {},
		"roles.create":       {},
		"roles.update":       {},
		"roles.delete":       {},
		"permissions.view":   {},
		"permissions.create": {},
		"permissions.delete": {},
	}

	protectedRoles = map[RoleName]struct{}{
		RoleSuperAdmin: {},
		RoleAdmin:      {},
		RoleMember:     {},
	}
)

// IsProtectedPermission reports whether the name is system-protected in every guard.
func IsProtectedPermission(name PermissionName) bool {
	_, ok := protectedPermissions[name]
	return ok
}

// IsProtectedRole reports whether the name is system-protected in every guard.
func IsProtectedRole(name RoleName) bool {
	_, ok := protectedRoles[name]
	return ok
}

// ProtectedPermissions lists the protected permission names.
func ProtectedPermissions() []PermissionName {
	names := make([]PermissionName, 0, len(protectedPermissions))
	for name := range protectedPermissions {
		names = append(names, name)
	}
	return names
}

// ProtectedRoles lists the protected role names.
func ProtectedRoles() []RoleName {
	names := make([]RoleName, 0, len(protectedRoles))
	for name := range protectedRoles {
		names = append(names, name)
	}
	return names
}
