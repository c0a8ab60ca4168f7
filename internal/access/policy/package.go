// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package policy

import (
	"github.com/taibuivan/backoffice/internal/access/rbac"
)

// PackagePolicy governs membership packages. Checks run in the actor's own
// guard, so members holding "packages.view" may browse the catalog.
type PackagePolicy struct{}

func (PackagePolicy) check(actor Actor, action string) Decision {
	return requirePermission(actor, rbac.Of(actor.Guard, rbac.ModulePackages, action))
}

// ViewAny gates package listing, trash listing and the catalog.
func (policy PackagePolicy) ViewAny(actor Actor) Decision { return policy.check(actor, rbac.ActionView) }

// View gates a single package lookup.
func (policy PackagePolicy) View(actor Actor) Decision { return policy.check(actor, rbac.ActionView) }

// Create gates new packages.
func (policy PackagePolicy) Create(actor Actor) Decision { return policy.check(actor, rbac.ActionCreate) }

// Update gates package edits.
func (policy PackagePolicy) Update(actor Actor) Decision { return policy.check(actor, rbac.ActionUpdate) }

// Delete gates moving a package to the trash.
func (policy PackagePolicy) Delete(actor Actor) Decision { return policy.check(actor, rbac.ActionDelete) }

// Restore gates bringing a package back from the trash.
func (policy PackagePolicy) Restore(actor Actor) Decision { return policy.check(actor, rbac.ActionRestore) }

// Export gates file exports of the package list.
func (policy PackagePolicy) Export(actor Actor) Decision { return policy.check(actor, rbac.ActionExport) }

// Bulk gates batch actions over packages.
func (policy PackagePolicy) Bulk(actor Actor) Decision { return policy.check(actor, rbac.ActionBulk) }

// ForceDelete gates permanent removal of a package.
func (policy PackagePolicy) ForceDelete(actor Actor) Decision {
	return policy.check(actor, rbac.ActionForceDelete)
}
