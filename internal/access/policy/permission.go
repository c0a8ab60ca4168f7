// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package policy

import (
	"fmt"

	"github.com/taibuivan/backoffice/internal/access/rbac"
)

// PermissionTarget is what permission predicates need to know about a permission.
type PermissionTarget struct {
	Permission rbac.Permission

	// Roles counts the roles granting the permission.
	Roles int
}

// PermissionPolicy governs permission management.
type PermissionPolicy struct{}

// ViewAny gates permission listing.
func (PermissionPolicy) ViewAny(actor Actor) Decision {
	return requirePermission(actor, rbac.PermPermissionsView)
}

// Create gates new permissions.
func (PermissionPolicy) Create(actor Actor) Decision {
	return requirePermission(actor, rbac.PermPermissionsCreate)
}

// Delete refuses protected names first, whatever the actor holds.
func (PermissionPolicy) Delete(actor Actor, target PermissionTarget) Decision {
	name := target.Permission.Name

	if rbac.IsProtectedPermission(name) {
		return Block(fmt.Sprintf("Permission %s is system-protected", name))
	}
	if decision := requirePermission(actor, rbac.PermPermissionsDelete); !decision.Allowed {
		return decision
	}
	if target.Roles > 0 {
		return Block(fmt.Sprintf("Permission %s is still granted by %d role(s)", name, target.Roles))
	}
	return Allow()
}
