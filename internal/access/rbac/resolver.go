// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// GrantResolver loads the current grants of a principal.
//
// Concurrent loads for the same (guard, principal) share one store round
// trip, which matters when a client fires several refreshes at once.
type GrantResolver struct {
	store Store
	group singleflight.Group
}

// NewGrantResolver wraps a [Store].
func NewGrantResolver(store Store) *GrantResolver {
	return &GrantResolver{store: store}
}

// Resolve returns what the principal currently holds in guard.
func (resolver *GrantResolver) Resolve(ctx context.Context, guard Guard, principalID string) (Grants, error) {
	key := guard.String() + ":" + principalID

	value, err, _ := resolver.group.Do(key, func() (any, error) {
		return resolver.store.Grants(ctx, guard, principalID)
	})
	if err != nil {
		return Grants{}, fmt.Errorf("rbac_resolve_grants_failed: %w", err)
	}
	return value.(Grants), nil
}
