// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import "context"

// # RBAC Data Access

// Store defines the relational operations of the RBAC model that go beyond
// single-table CRUD (which the generic repository covers).
type Store interface {

	/*
		Grants returns what a principal holds in a guard: roles assigned in
		that guard plus permissions granted through those roles or directly.

		Parameters:
		  - context: context.Context
		  - guard: Guard
		  - principalID: string

		Returns:
		  - Grants: empty (level 0) when nothing is assigned
		  - error: Database retrieval failures
	*/
	Grants(context context.Context, guard Guard, principalID string) (Grants, error)

	// RolePermissions lists the permissions granted to a role.
	RolePermissions(context context.Context, roleID string) ([]PermissionName, error)

	// CountRoleHolders counts principals holding a role.
	CountRoleHolders(context context.Context, roleID string) (int, error)

	// CountPermissionRoles counts roles granting a permission.
	CountPermissionRoles(context context.Context, permissionID string) (int, error)

	/*
		SyncRolePermissions replaces the permission set of a role atomically.

		Parameters:
		  - context: context.Context
		  - role: *Role (guard scopes the names)
		  - names: []PermissionName (already validated against the registry)

		Returns:
		  - error: ValidationError when a name is not persisted for the guard
	*/
	SyncRolePermissions(context context.Context, role *Role, names []PermissionName) error

	// AssignRoles replaces the role set of a principal in a guard.
	AssignRoles(context context.Context, guard Guard, principalID string, roleIDs []string) error

	// GrantPermissions replaces the direct permissions of a principal in a guard.
	GrantPermissions(context context.Context, guard Guard, principalID string, names []PermissionName) error

	// UpsertCatalog makes the persisted catalog a superset of the registry.
	// Existing rows are left untouched.
	UpsertCatalog(context context.Context, registry *Registry) error
}
