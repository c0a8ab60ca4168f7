// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"regexp"
	"strings"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
)

var (
	permissionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*\.[a-z][a-z0-9_]*$`)
	rolePattern       = regexp.MustCompile(`^[a-z][a-z0-9]*(?:-[a-z0-9]+)*$`)
)

// MaxRoleNameLength bounds role names.
const MaxRoleNameLength = 50

// # Permission Names

// PermissionName is a validated "<module>.<action>" name.
type PermissionName string

// ParsePermissionName validates raw as "<module>.<action>".
func ParsePermissionName(raw string) (PermissionName, error) {
	name := strings.TrimSpace(raw)
	if !permissionPattern.MatchString(name) {
		return "", apperr.ValidationError("Invalid permission name",
			apperr.FieldError{Field: "name", Message: "Must look like module.action (lowercase)"})
	}
	return PermissionName(name), nil
}

// Module is the part before the dot.
func (n PermissionName) Module() string {
	module, _, _ := strings.Cut(string(n), ".")
	return module
}

// Action is the part after the dot.
func (n PermissionName) Action() string {
	_, action, _ := strings.Cut(string(n), ".")
	return action
}

func (n PermissionName) String() string { return string(n) }

// # Role Names

// RoleName is a validated kebab-case role name.
type RoleName string

// ParseRoleName validates raw as a kebab-case name of at most [MaxRoleNameLength] characters.
func ParseRoleName(raw string) (RoleName, error) {
	name := strings.TrimSpace(raw)
	if len(name) > MaxRoleNameLength || !rolePattern.MatchString(name) {
		return "", apperr.ValidationError("Invalid role name",
			apperr.FieldError{Field: "name", Message: "Must be lowercase words joined by hyphens"})
	}
	return RoleName(name), nil
}

func (n RoleName) String() string { return string(n) }

// # Composite Identities

// RoleKey identifies a role. Names are only unique within a guard.
type RoleKey struct {
	Guard Guard
	Name  RoleName
}

func (k RoleKey) String() string { return string(k.Guard) + ":" + string(k.Name) }

// Permission is a guard-scoped permission used in checks.
type Permission struct {
	Guard Guard
	Name  PermissionName
}

func (p Permission) String() string { return string(p.Guard) + ":" + string(p.Name) }
