// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package policy is the authorization policy evaluator.

Each managed resource has a policy whose predicates take the acting principal
(and, when relevant, the target) and return a [Decision]. A denial is a normal
outcome, never an error or a panic; callers turn it into an [apperr.AppError]
with [Decision.Err] at the service boundary.

Every predicate follows the same order:

 1. Self shortcuts (view/update self, never delete self).
 2. Permission check within the actor's guard.
 3. Role hierarchy: the target level must be strictly below the actor level.
 4. System protection: protected names are never deletable.
 5. Referential integrity: referenced roles and permissions are never deletable.

Delete predicates evaluate protection before the permission check so that a
protected name answers Conflict to every caller.
*/
package policy

import (
	"slices"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/sec"
)

// Actor is the principal on whose behalf an operation runs.
type Actor struct {
	ID          string
	Guard       rbac.Guard
	Roles       []rbac.RoleName
	Permissions []rbac.PermissionName

	// Level is the highest role level held (0 without roles).
	Level int
}

/*
FromClaims builds an actor from the snapshot embedded in a session token.

Parameters:
  - claims: *sec.SessionClaims (already verified)

Returns:
  - Actor: The snapshot as issued; it is not refreshed here
  - error: Unauthorized when the claims are missing or name an unknown guard
*/
func FromClaims(claims *sec.SessionClaims) (Actor, error) {
	if claims == nil || claims.PrincipalID == "" {
		return Actor{}, apperr.Unauthorized("Authentication required")
	}

	guard := rbac.Guard(claims.GuardType)
	if !guard.Valid() {
		return Actor{}, apperr.Unauthorized("Invalid session guard")
	}

	actor := Actor{
		ID:          claims.PrincipalID,
		Guard:       guard,
		Roles:       make([]rbac.RoleName, 0, len(claims.Roles)),
		Permissions: make([]rbac.PermissionName, 0, len(claims.Permissions)),
		Level:       claims.Level,
	}
	for _, role := range claims.Roles {
		actor.Roles = append(actor.Roles, rbac.RoleName(role))
	}
	for _, permission := range claims.Permissions {
		actor.Permissions = append(actor.Permissions, rbac.PermissionName(permission))
	}
	return actor, nil
}

// FromGrants builds an actor from freshly resolved grants.
func FromGrants(principalID string, grants rbac.Grants) Actor {
	return Actor{
		ID:          principalID,
		Guard:       grants.Guard,
		Roles:       slices.Clone(grants.Roles),
		Permissions: slices.Clone(grants.Permissions),
		Level:       grants.Level,
	}
}

// Can reports whether the actor holds permission. Permissions of another
// guard never match, even when the names are equal.
func (actor Actor) Can(permission rbac.Permission) bool {
	if permission.Guard != actor.Guard {
		return false
	}
	return slices.Contains(actor.Permissions, permission.Name)
}

// HasRole reports whether the actor holds the named role in its own guard.
func (actor Actor) HasRole(name rbac.RoleName) bool {
	return slices.Contains(actor.Roles, name)
}

// Is reports whether the actor is the principal (guard, id).
func (actor Actor) Is(guard rbac.Guard, id string) bool {
	return actor.ID != "" && actor.Guard == guard && actor.ID == id
}

// Outranks reports whether level is strictly below the actor's level.
func (actor Actor) Outranks(level int) bool {
	return level < actor.Level
}
