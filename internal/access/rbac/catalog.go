// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

// # Modules & Actions

const (
	ModuleUsers       = "users"
	ModuleAdmins      = "admins"
	ModuleRoles       = "roles"
	ModulePermissions = "permissions"
	ModulePackages    = "packages"
	ModuleProfile     = "profile"
)

const (
	ActionView        = "view"
	ActionCreate      = "create"
	ActionUpdate      = "update"
	ActionDelete      = "delete"
	ActionRestore     = "restore"
	ActionForceDelete = "force_delete"
	ActionExport      = "export"
	ActionBulk        = "bulk"
	ActionAssignRoles = "assign_roles"
)

// Default role names.
const (
	RoleSuperAdmin RoleName = "super-admin"
	RoleAdmin      RoleName = "admin"
	RoleEditor     RoleName = "editor"
	RoleSupport    RoleName = "support"
	RoleMember     RoleName = "member"
)

// Of builds a guard-scoped permission from its module and action.
func Of(guard Guard, module, action string) Permission {
	return Permission{Guard: guard, Name: PermissionName(module + "." + action)}
}

// Permissions checked by the role and permission management policies.
var (
	PermRolesView   = Of(GuardAdmin, ModuleRoles, ActionView)
	PermRolesCreate = Of(GuardAdmin, ModuleRoles, ActionCreate)
	PermRolesUpdate = Of(GuardAdmin, ModuleRoles, ActionUpdate)
	PermRolesDelete = Of(GuardAdmin, ModuleRoles, ActionDelete)
	PermRolesExport = Of(GuardAdmin, ModuleRoles, ActionExport)

	PermPermissionsView   = Of(GuardAdmin, ModulePermissions, ActionView)
	PermPermissionsCreate = Of(GuardAdmin, ModulePermissions, ActionCreate)
	PermPermissionsDelete = Of(GuardAdmin, ModulePermissions, ActionDelete)

	PermProfileView   = Of(GuardUser, ModuleProfile, ActionView)
	PermProfileUpdate = Of(GuardUser, ModuleProfile, ActionUpdate)
)

func actions(module string, verbs ...string) []string {
	names := make([]string, 0, len(verbs))
	for _, verb := range verbs {
		names = append(names, module+"."+verb)
	}
	return names
}

var principalActions = []string{
	ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionRestore,
	ActionForceDelete, ActionExport, ActionBulk, ActionAssignRoles,
}

var packageActions = []string{
	ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionRestore,
	ActionForceDelete, ActionExport, ActionBulk,
}

// DefaultRegistry is the catalog seeded into every deployment.
func DefaultRegistry() *Registry {
	registry := NewRegistry()

	registry.DefineGuard(GuardAdmin).
		Permissions(actions(ModuleUsers, principalActions...)...).
		Permissions(actions(ModuleAdmins, principalActions...)...).
		Permissions(actions(ModuleRoles, ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionExport)...).
		Permissions(actions(ModulePermissions, ActionView, ActionCreate, ActionDelete)...).
		Permissions(actions(ModulePackages, packageActions...)...).
		Role(string(RoleSuperAdmin), 100, AllPermissions).
		Role(string(RoleAdmin), 50, append(append(
			actions(ModuleUsers, principalActions...),
			actions(ModulePackages, packageActions...)...),
			"admins.view", "roles.view", "roles.export", "permissions.view")...).
		Role(string(RoleEditor), 20, append(
			actions(ModulePackages, ActionView, ActionCreate, ActionUpdate, ActionDelete, ActionRestore, ActionExport, ActionBulk),
			"users.view")...).
		Role(string(RoleSupport), 10, "users.view", "users.update", "users.export", "packages.view")

	registry.DefineGuard(GuardUser).
		Permissions(actions(ModuleProfile, ActionView, ActionUpdate)...).
		Permissions("packages.view").
		Role(string(RoleMember), 1, AllPermissions)

	return registry
}
