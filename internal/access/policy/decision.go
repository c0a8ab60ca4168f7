// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package policy

import (
	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
)

// Decision is the outcome of a policy predicate.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Allow is the positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny refuses the operation for lack of authority (Forbidden).
func Deny(reason string) Decision {
	return Decision{Code: apperr.CodeForbidden, Reason: reason}
}

// Block refuses the operation because of the target's state (Conflict).
func Block(reason string) Decision {
	return Decision{Code: apperr.CodeConflict, Reason: reason}
}

// Err converts a refusal into an application error; nil when allowed.
func (decision Decision) Err() error {
	if decision.Allowed {
		return nil
	}
	if decision.Code == apperr.CodeConflict {
		return apperr.Conflict(decision.Reason)
	}
	return apperr.Forbidden(decision.Reason)
}

// # Building Blocks

func requirePermission(actor Actor, permission rbac.Permission) Decision {
	if actor.Can(permission) {
		return Allow()
	}
	return Deny("Missing permission " + string(permission.Name))
}

func requireOutrank(actor Actor, level int) Decision {
	if actor.Outranks(level) {
		return Allow()
	}
	return Deny("Role level must be lower than your own")
}

// first returns the first refusal, or Allow.
func first(checks ...func() Decision) Decision {
	for _, check := range checks {
		if decision := check(); !decision.Allowed {
			return decision
		}
	}
	return Allow()
}
