// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"slices"
	"time"

	"github.com/uptrace/bun"

	"github.com/taibuivan/backoffice/internal/platform/repository"
)

// # Entities

// Role is a persisted, guard-scoped role.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string    `bun:"id,pk" json:"id"`
	Guard       Guard     `bun:"guard,notnull" json:"guard"`
	Name        RoleName  `bun:"name,notnull" json:"name"`
	Level       int       `bun:"level,notnull" json:"level"`
	Description string    `bun:"description" json:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`

	// Loaded on demand.
	Permissions    []PermissionName `bun:"-" json:"permissions,omitempty"`
	PrincipalCount int              `bun:"-" json:"principal_count"`
}

// PrimaryKey returns the role id.
func (r *Role) PrimaryKey() string { return r.ID }

// Key is the composite identity of the role.
func (r *Role) Key() RoleKey { return RoleKey{Guard: r.Guard, Name: r.Name} }

// Touch stamps the creation and update times.
func (r *Role) Touch(now time.Time, creating bool) {
	if creating {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
}

// PermissionRecord is a persisted, guard-scoped permission.
type PermissionRecord struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          string         `bun:"id,pk" json:"id"`
	Guard       Guard          `bun:"guard,notnull" json:"guard"`
	Name        PermissionName `bun:"name,notnull" json:"name"`
	Description string         `bun:"description" json:"description"`
	CreatedAt   time.Time      `bun:"created_at,notnull" json:"created_at"`

	RoleCount int `bun:"-" json:"role_count"`
}

// PrimaryKey returns the permission id.
func (p *PermissionRecord) PrimaryKey() string { return p.ID }

// Permission is the check value of the record.
func (p *PermissionRecord) Permission() Permission {
	return Permission{Guard: p.Guard, Name: p.Name}
}

// Touch stamps the creation time; permissions are never edited.
func (p *PermissionRecord) Touch(now time.Time, creating bool) {
	if creating {
		p.CreatedAt = now
	}
}

// # Descriptors

// RoleDescriptor exposes roles to the generic repository.
var RoleDescriptor = repository.Descriptor[*Role]{
	Name:          "Role",
	Collection:    "roles",
	New:           func() *Role { return &Role{} },
	Columns:       []string{"id", "guard", "name", "level", "description", "created_at", "updated_at"},
	Searchable:    []string{"name", "description"},
	Immutable:     []string{"guard", "created_at"},
	DefaultSort:   "level",
	UpdatedColumn: "updated_at",
}

// PermissionDescriptor exposes permissions to the generic repository.
var PermissionDescriptor = repository.Descriptor[*PermissionRecord]{
	Name:        "Permission",
	Collection:  "permissions",
	New:         func() *PermissionRecord { return &PermissionRecord{} },
	Columns:     []string{"id", "guard", "name", "description", "created_at"},
	Searchable:  []string{"name", "description"},
	Immutable:   []string{"guard", "name", "created_at"},
	DefaultSort: "name",
}

// # Grants

// Grants is what a principal holds in one guard: its roles, the union of
// role and direct permissions, and its highest role level (0 without roles).
type Grants struct {
	Guard       Guard
	Roles       []RoleName
	Permissions []PermissionName
	Level       int
}

// RoleGrant is one role held by a principal.
type RoleGrant struct {
	Name  RoleName
	Level int
}

// NewGrants folds role and permission rows into [Grants], sorted and de-duplicated.
func NewGrants(guard Guard, roles []RoleGrant, permissions []PermissionName) Grants {
	grants := Grants{Guard: guard, Roles: []RoleName{}, Permissions: []PermissionName{}}

	for _, role := range roles {
		if !slices.Contains(grants.Roles, role.Name) {
			grants.Roles = append(grants.Roles, role.Name)
		}
		grants.Level = max(grants.Level, role.Level)
	}
	for _, permission := range permissions {
		if !slices.Contains(grants.Permissions, permission) {
			grants.Permissions = append(grants.Permissions, permission)
		}
	}

	slices.Sort(grants.Roles)
	slices.Sort(grants.Permissions)
	return grants
}

// RoleStrings returns role names as plain strings for token claims.
func (g Grants) RoleStrings() []string {
	out := make([]string, len(g.Roles))
	for i, role := range g.Roles {
		out[i] = string(role)
	}
	return out
}

// PermissionStrings returns permission names as plain strings for token claims.
func (g Grants) PermissionStrings() []string {
	out := make([]string, len(g.Permissions))
	for i, permission := range g.Permissions {
		out[i] = string(permission)
	}
	return out
}
