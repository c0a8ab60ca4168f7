// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"fmt"
	"slices"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
)

// AllPermissions grants every permission of the guard to a role definition.
const AllPermissions = "*"

// RoleDefinition is a role of the static catalog.
type RoleDefinition struct {
	Key         RoleKey
	Level       int
	Permissions []PermissionName
}

type guardCatalog struct {
	permissions []PermissionName
	roles       []RoleDefinition
}

// Registry is the static catalog of permissions and roles per guard.
//
// It is built once at wiring time and read-only afterwards; builder methods
// panic on malformed input because a bad catalog is a programming error.
type Registry struct {
	guards map[Guard]*guardCatalog
}

// NewRegistry returns an empty catalog.
func NewRegistry() *Registry {
	return &Registry{guards: make(map[Guard]*guardCatalog)}
}

// GuardBuilder declares the catalog of one guard.
type GuardBuilder struct {
	guard   Guard
	catalog *guardCatalog
}

// DefineGuard opens (or reopens) the catalog of a guard.
func (registry *Registry) DefineGuard(guard Guard) *GuardBuilder {
	if !guard.Valid() {
		panic(fmt.Sprintf("rbac: unknown guard %q", guard))
	}
	catalog, ok := registry.guards[guard]
	if !ok {
		catalog = &guardCatalog{}
		registry.guards[guard] = catalog
	}
	return &GuardBuilder{guard: guard, catalog: catalog}
}

// Permissions declares permission names for the guard.
func (builder *GuardBuilder) Permissions(names ...string) *GuardBuilder {
	for _, raw := range names {
		name, err := ParsePermissionName(raw)
		if err != nil {
			panic(fmt.Sprintf("rbac: invalid permission %q", raw))
		}
		if !slices.Contains(builder.catalog.permissions, name) {
			builder.catalog.permissions = append(builder.catalog.permissions, name)
		}
	}
	return builder
}

// Role declares a role with its level and granted permissions.
// Grants must already be declared on the guard, or be [AllPermissions].
func (builder *GuardBuilder) Role(raw string, level int, grants ...string) *GuardBuilder {
	name, err := ParseRoleName(raw)
	if err != nil || level < 1 {
		panic(fmt.Sprintf("rbac: invalid role %q (level %d)", raw, level))
	}

	definition := RoleDefinition{Key: RoleKey{Guard: builder.guard, Name: name}, Level: level}
	for _, grant := range grants {
		if grant == AllPermissions {
			definition.Permissions = slices.Clone(builder.catalog.permissions)
			continue
		}
		permission := PermissionName(grant)
		if !slices.Contains(builder.catalog.permissions, permission) {
			panic(fmt.Sprintf("rbac: role %q grants undeclared permission %q", raw, grant))
		}
		definition.Permissions = append(definition.Permissions, permission)
	}

	builder.catalog.roles = append(builder.catalog.roles, definition)
	return builder
}

// # Lookups

// Permission resolves a name within a guard, failing fast for unknown names.
func (registry *Registry) Permission(guard Guard, raw string) (Permission, error) {
	name, err := ParsePermissionName(raw)
	if err != nil {
		return Permission{}, err
	}

	catalog, ok := registry.guards[guard]
	if !ok || !slices.Contains(catalog.permissions, name) {
		return Permission{}, apperr.ValidationError("Unknown permission",
			apperr.FieldError{Field: "permission", Message: fmt.Sprintf("%s is not declared for guard %s", name, guard)})
	}
	return Permission{Guard: guard, Name: name}, nil
}

// MustPermission is [Registry.Permission] for wiring-time constants.
func (registry *Registry) MustPermission(guard Guard, raw string) Permission {
	permission, err := registry.Permission(guard, raw)
	if err != nil {
		panic(fmt.Sprintf("rbac: %s:%s: %v", guard, raw, err))
	}
	return permission
}

// Has reports whether the permission is declared.
func (registry *Registry) Has(permission Permission) bool {
	catalog, ok := registry.guards[permission.Guard]
	return ok && slices.Contains(catalog.permissions, permission.Name)
}

// Permissions lists the declared permissions of a guard.
func (registry *Registry) Permissions(guard Guard) []PermissionName {
	if catalog, ok := registry.guards[guard]; ok {
		return slices.Clone(catalog.permissions)
	}
	return nil
}

// Roles lists the declared roles of a guard.
func (registry *Registry) Roles(guard Guard) []RoleDefinition {
	if catalog, ok := registry.guards[guard]; ok {
		return slices.Clone(catalog.roles)
	}
	return nil
}

// Role looks up a declared role by its composite key.
func (registry *Registry) Role(key RoleKey) (RoleDefinition, bool) {
	for _, definition := range registry.Roles(key.Guard) {
		if definition.Key == key {
			return definition, true
		}
	}
	return RoleDefinition{}, false
}
