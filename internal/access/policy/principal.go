// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package policy

import (
	"github.com/taibuivan/backoffice/internal/access/rbac"
)

// PrincipalPolicy governs one kind of principal record (end users or operators).
//
// Management permissions live in the admin guard under the kind's module
// ("users.*" or "admins.*"). Self shortcuts apply only when the actor
// authenticated in the guard the records belong to.
type PrincipalPolicy struct {
	// Kind is the guard the managed principals authenticate in.
	Kind   rbac.Guard
	module string
}

// UserPolicy governs end-user records.
var UserPolicy = PrincipalPolicy{Kind: rbac.GuardUser, module: rbac.ModuleUsers}

// AdminPolicy governs back-office operator records.
var AdminPolicy = PrincipalPolicy{Kind: rbac.GuardAdmin, module: rbac.ModuleAdmins}

// PolicyFor returns the policy of the principals authenticating in guard.
func PolicyFor(guard rbac.Guard) PrincipalPolicy {
	if guard == rbac.GuardAdmin {
		return AdminPolicy
	}
	return UserPolicy
}

func (policy PrincipalPolicy) permission(action string) rbac.Permission {
	return rbac.Of(rbac.GuardAdmin, policy.module, action)
}

func (policy PrincipalPolicy) self(actor Actor, targetID string) bool {
	return actor.Is(policy.Kind, targetID)
}

// PrincipalTarget is a managed principal with the highest role level it
// currently holds in its own guard.
type PrincipalTarget struct {
	ID    string
	Level int
}

// outranks applies the hierarchy between principals of the same guard.
// Staff managing end users act across guards, where levels do not compare.
func (policy PrincipalPolicy) outranks(actor Actor, target PrincipalTarget) Decision {
	if actor.Guard != policy.Kind || target.Level == 0 || actor.Outranks(target.Level) {
		return Allow()
	}
	return Deny("That account is at or above your level")
}

// # Read

// ViewAny gates listing, trash listing and lookups of other principals.
func (policy PrincipalPolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, policy.permission(rbac.ActionView))
}

// View lets principals see their own record; others need the view permission.
func (policy PrincipalPolicy) View(actor Actor, targetID string) Decision {
	if policy.self(actor, targetID) {
		return Allow()
	}
	return requirePermission(actor, policy.permission(rbac.ActionView))
}

// Export gates file exports of the principal list.
func (policy PrincipalPolicy) Export(actor Actor) Decision {
	return requirePermission(actor, policy.permission(rbac.ActionExport))
}

// # Write

// Create gates new principals. The roles they start with are checked by [PrincipalPolicy.AssignRoles].
func (policy PrincipalPolicy) Create(actor Actor) Decision {
	return requirePermission(actor, policy.permission(rbac.ActionCreate))
}

// Update lets principals edit themselves; others need the update
// permission and must outrank the target.
func (policy PrincipalPolicy) Update(actor Actor, target PrincipalTarget) Decision {
	if policy.self(actor, target.ID) {
		return Allow()
	}
	return first(
		func() Decision { return requirePermission(actor, policy.permission(rbac.ActionUpdate)) },
		func() Decision { return policy.outranks(actor, target) },
	)
}

// Delete never applies to oneself and requires outranking the target.
func (policy PrincipalPolicy) Delete(actor Actor, target PrincipalTarget) Decision {
	if policy.self(actor, target.ID) {
		return Deny("You cannot delete your own account")
	}
	return first(
		func() Decision { return requirePermission(actor, policy.permission(rbac.ActionDelete)) },
		func() Decision { return policy.outranks(actor, target) },
	)
}

// Restore gates bringing a principal back from the trash.
func (policy PrincipalPolicy) Restore(actor Actor) Decision {
	return requirePermission(actor, policy.permission(rbac.ActionRestore))
}

// ForceDelete follows [PrincipalPolicy.Delete] with the force_delete permission.
func (policy PrincipalPolicy) ForceDelete(actor Actor, target PrincipalTarget) Decision {
	if policy.self(actor, target.ID) {
		return Deny("You cannot delete your own account")
	}
	return first(
		func() Decision { return requirePermission(actor, policy.permission(rbac.ActionForceDelete)) },
		func() Decision { return policy.outranks(actor, target) },
	)
}

// Bulk gates the batch as a whole; each item is then checked with
// [PrincipalPolicy.BulkItem].
func (policy PrincipalPolicy) Bulk(actor Actor) Decision {
	return requirePermission(actor, policy.permission(rbac.ActionBulk))
}

// BulkItem checks one item of a batch. Acting on oneself is refused for
// every bulk action, since activate/deactivate/delete would lock the actor out.
func (policy PrincipalPolicy) BulkItem(actor Actor, target PrincipalTarget) Decision {
	if policy.self(actor, target.ID) {
		return Deny("You cannot include your own account in a bulk action")
	}
	return policy.outranks(actor, target)
}

/*
AssignRoles decides whether the actor may replace the roles of a principal.

Description: The actor must outrank the roles the target holds now and
every role in the new set. Changing one's own roles is refused outright so
that nobody can gain a level they do not already hold.

Parameters:
  - actor: Actor
  - target: PrincipalTarget (current level of the principal)
  - roles: []RoleTarget (the new role set)

Returns:
  - Decision
*/
func (policy PrincipalPolicy) AssignRoles(actor Actor, target PrincipalTarget, roles []RoleTarget) Decision {
	if policy.self(actor, target.ID) {
		return Deny("You cannot change your own roles")
	}
	if decision := requirePermission(actor, policy.permission(rbac.ActionAssignRoles)); !decision.Allowed {
		return decision
	}
	if decision := policy.outranks(actor, target); !decision.Allowed {
		return decision
	}
	for _, role := range roles {
		if decision := requireOutrank(actor, role.Level); !decision.Allowed {
			return Deny("Role " + role.Key.String() + " is at or above your level")
		}
	}
	return Allow()
}
