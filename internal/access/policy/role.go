// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package policy

import (
	"fmt"

	"github.com/taibuivan/backoffice/internal/access/rbac"
)

// RoleTarget is what role predicates need to know about a role.
type RoleTarget struct {
	Key   rbac.RoleKey
	Level int

	// Holders counts the principals holding the role.
	Holders int
}

// TargetOf describes a persisted role.
func TargetOf(role *rbac.Role) RoleTarget {
	return RoleTarget{Key: role.Key(), Level: role.Level, Holders: role.PrincipalCount}
}

// RolePolicy governs role management.
type RolePolicy struct{}

// ViewAny gates role listing and lookups.
func (RolePolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, rbac.PermRolesView)
}

// Export gates file exports of the role list.
func (RolePolicy) Export(actor Actor) Decision {
	return requirePermission(actor, rbac.PermRolesExport)
}

// Create checks a new role of the given level.
func (RolePolicy) Create(actor Actor, level int) Decision {
	return first(
		func() Decision { return requirePermission(actor, rbac.PermRolesCreate) },
		func() Decision { return requireOutrank(actor, level) },
	)
}

// Update checks an edit of target. A level change is checked separately
// with [RolePolicy.Create] semantics by the caller.
func (RolePolicy) Update(actor Actor, target RoleTarget) Decision {
	return first(
		func() Decision { return requirePermission(actor, rbac.PermRolesUpdate) },
		func() Decision { return requireOutrank(actor, target.Level) },
	)
}

// SyncPermissions checks replacing the permission set of target.
func (RolePolicy) SyncPermissions(actor Actor, target RoleTarget) Decision {
	return first(
		func() Decision { return requirePermission(actor, rbac.PermRolesUpdate) },
		func() Decision { return requireOutrank(actor, target.Level) },
	)
}

/*
Delete decides whether target may be removed.

Description: Protected names are refused with Conflict before anything else.
A role still held by a principal is refused with Conflict after the
permission and hierarchy checks.

Parameters:
  - actor: Actor
  - target: RoleTarget (Holders must be loaded)

Returns:
  - Decision
*/
func (RolePolicy) Delete(actor Actor, target RoleTarget) Decision {
	return first(
		func() Decision {
			if rbac.IsProtectedRole(target.Key.Name) {
				return Block(fmt.Sprintf("Role %s is system-protected", target.Key.Name))
			}
			return Allow()
		},
		func() Decision { return requirePermission(actor, rbac.PermRolesDelete) },
		func() Decision { return requireOutrank(actor, target.Level) },
		func() Decision {
			if target.Holders > 0 {
				return Block(fmt.Sprintf("Role %s is still assigned to %d principal(s)", target.Key.Name, target.Holders))
			}
			return Allow()
		},
	)
}
