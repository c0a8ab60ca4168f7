// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package rbac is the multi-guard role and permission model.

A guard is an isolated authorization realm. Roles and permissions belong to
exactly one guard, and a role is identified by (guard, name): the "admin" role
of the user guard and the "admin" role of the admin guard are unrelated.

The package holds the static [Registry] (the catalog every deployment starts
with), the typed names validated at the boundary, the persisted entities and
the [Store] that resolves a principal's grants.
*/
package rbac

import (
	"strings"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
)

// Guard is an authorization realm.
type Guard string

const (
	// GuardUser is the realm of end users (members).
	GuardUser Guard = "user"
	// GuardAdmin is the realm of back-office operators.
	GuardAdmin Guard = "admin"
)

// Guards lists every realm in catalog order.
func Guards() []Guard {
	return []Guard{GuardUser, GuardAdmin}
}

// ParseGuard validates a caller-supplied guard name.
func ParseGuard(raw string) (Guard, error) {
	switch guard := Guard(strings.ToLower(strings.TrimSpace(raw))); guard {
	case GuardUser, GuardAdmin:
		return guard, nil
	}
	return "", apperr.ValidationError("Invalid guard",
		apperr.FieldError{Field: "guard", Message: "Must be one of: user, admin"})
}

// Valid reports whether g is a known realm.
func (g Guard) Valid() bool {
	return g == GuardUser || g == GuardAdmin
}

func (g Guard) String() string { return string(g) }
