// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// RoleTable represents the 'roles' table
type RoleTable struct {
	Table       string
	ID          string
	Guard       string
	Name        string
	Level       string
	Description string
	CreatedAt   string
	UpdatedAt   string
}

// Role is the schema definition for roles
var Role = RoleTable{
	Table:       "roles",
	ID:          "id",
	Guard:       "guard",
	Name:        "name",
	Level:       "level",
	Description: "description",
	CreatedAt:   "created_at",
	UpdatedAt:   "updated_at",
}

// PermissionTable represents the 'permissions' table
type PermissionTable struct {
	Table       string
	ID          string
	Guard       string
	Name        string
	Description string
	CreatedAt   string
}

// Permission is the schema definition for permissions
var Permission = PermissionTable{
	Table:       "permissions",
	ID:          "id",
	Guard:       "guard",
	Name:        "name",
	Description: "description",
	CreatedAt:   "created_at",
}

// RolePermissionTable represents the 'role_permissions' pivot
type RolePermissionTable struct {
	Table        string
	RoleID       string
	PermissionID string
}

// RolePermission is the schema definition for role_permissions
var RolePermission = RolePermissionTable{
	Table:        "role_permissions",
	RoleID:       "role_id",
	PermissionID: "permission_id",
}

// PrincipalRoleTable represents the 'principal_roles' pivot
type PrincipalRoleTable struct {
	Table       string
	Guard       string
	PrincipalID string
	RoleID      string
}

// PrincipalRole is the schema definition for principal_roles
var PrincipalRole = PrincipalRoleTable{
	Table:       "principal_roles",
	Guard:       "guard",
	PrincipalID: "principal_id",
	RoleID:      "role_id",
}

// PrincipalPermissionTable represents the 'principal_permissions' pivot
type PrincipalPermissionTable struct {
	Table        string
	Guard        string
	PrincipalID  string
	PermissionID string
}

// PrincipalPermission is the schema definition for principal_permissions
var PrincipalPermission = PrincipalPermissionTable{
	Table:        "principal_permissions",
	Guard:        "guard",
	PrincipalID:  "principal_id",
	PermissionID: "permission_id",
}
