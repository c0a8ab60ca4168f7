// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package rbactest provides an in-memory [rbac.Store] backed by the same
// memory backends the role and permission repositories use in tests.
package rbactest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/repository/repositorytest"
	"github.com/taibuivan/backoffice/pkg/uuid"
)

// Store is a fake [rbac.Store].
type Store struct {
	Roles       *repositorytest.MemoryBackend[*rbac.Role]
	Permissions *repositorytest.MemoryBackend[*rbac.PermissionRecord]

	// Fail, when set, is returned by every call.
	Fail error
	// GrantsCalls counts Grants invocations.
	GrantsCalls atomic.Int64

	mu                   sync.Mutex
	rolePermissions      map[string][]string
	principalRoles       map[string][]string
	principalPermissions map[string][]string
}

// NewStore returns an empty store with fresh backends.
func NewStore() *Store {
	return &Store{
		Roles:                repositorytest.NewMemoryBackend(rbac.RoleDescriptor),
		Permissions:          repositorytest.NewMemoryBackend(rbac.PermissionDescriptor),
		rolePermissions:      map[string][]string{},
		principalRoles:       map[string][]string{},
		principalPermissions: map[string][]string{},
	}
}

func principalKey(guard rbac.Guard, principalID string) string {
	return guard.String() + ":" + principalID
}

// # Fixtures

// AddPermission stores a permission row and returns it.
func (store *Store) AddPermission(guard rbac.Guard, name rbac.PermissionName) *rbac.PermissionRecord {
	record := &rbac.PermissionRecord{ID: uuid.New(), Guard: guard, Name: name, CreatedAt: time.Now()}
	store.Permissions.Seed(record)
	return record
}

// AddRole stores a role row granting the given permissions (created on demand).
func (store *Store) AddRole(guard rbac.Guard, name rbac.RoleName, level int, permissions ...rbac.PermissionName) *rbac.Role {
	role := &rbac.Role{ID: uuid.New(), Guard: guard, Name: name, Level: level, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store.Roles.Seed(role)

	ids := make([]string, 0, len(permissions))
	for _, permission := range permissions {
		record, ok := store.permission(guard, permission)
		if !ok {
			record = store.AddPermission(guard, permission)
		}
		ids = append(ids, record.ID)
	}

	store.mu.Lock()
	store.rolePermissions[role.ID] = ids
	store.mu.Unlock()
	return role
}

// Assign gives roles to a principal without any checks.
func (store *Store) Assign(guard rbac.Guard, principalID string, roles ...*rbac.Role) {
	store.mu.Lock()
	defer store.mu.Unlock()

	key := principalKey(guard, principalID)
	for _, role := range roles {
		store.principalRoles[key] = append(store.principalRoles[key], role.ID)
	}
}

func (store *Store) permission(guard rbac.Guard, name rbac.PermissionName) (*rbac.PermissionRecord, bool) {
	items, _, _ := store.Permissions.List(context.Background(), repository.Criteria{
		Conditions: []repository.Condition{
			{Field: "guard", Operator: repository.OpEqual, Value: guard},
			{Field: "name", Operator: repository.OpEqual, Value: name},
		},
		SortField: "name",
	})
	if len(items) == 0 {
		return nil, false
	}
	return items[0], true
}

func (store *Store) permissionName(id string) (rbac.PermissionName, bool) {
	record, ok := store.Permissions.Get(id)
	if !ok {
		return "", false
	}
	return record.Name, true
}

// # rbac.Store

func (store *Store) Grants(_ context.Context, guard rbac.Guard, principalID string) (rbac.Grants, error) {
	store.GrantsCalls.Add(1)
	if store.Fail != nil {
		return rbac.Grants{}, store.Fail
	}

	store.mu.Lock()
	roleIDs := slices.Clone(store.principalRoles[principalKey(guard, principalID)])
	direct := slices.Clone(store.principalPermissions[principalKey(guard, principalID)])
	store.mu.Unlock()

	var roles []rbac.RoleGrant
	var permissions []rbac.PermissionName

	for _, roleID := range roleIDs {
		role, ok := store.Roles.Get(roleID)
		if !ok || role.Guard != guard {
			continue
		}
		roles = append(roles, rbac.RoleGrant{Name: role.Name, Level: role.Level})

		names, _ := store.RolePermissions(context.Background(), roleID)
		permissions = append(permissions, names...)
	}
	for _, id := range direct {
		if name, ok := store.permissionName(id); ok {
			permissions = append(permissions, name)
		}
	}

	return rbac.NewGrants(guard, roles, permissions), nil
}

func (store *Store) RolePermissions(_ context.Context, roleID string) ([]rbac.PermissionName, error) {
	if store.Fail != nil {
		return nil, store.Fail
	}

	store.mu.Lock()
	ids := slices.Clone(store.rolePermissions[roleID])
	store.mu.Unlock()

	names := make([]rbac.PermissionName, 0, len(ids))
	for _, id := range ids {
		if name, ok := store.permissionName(id); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (store *Store) CountRoleHolders(_ context.Context, roleID string) (int, error) {
	if store.Fail != nil {
		return 0, store.Fail
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	count := 0
	for _, roleIDs := range store.principalRoles {
		if slices.Contains(roleIDs, roleID) {
			count++
		}
	}
	return count, nil
}

func (store *Store) CountPermissionRoles(_ context.Context, permissionID string) (int, error) {
	if store.Fail != nil {
		return 0, store.Fail
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	count := 0
	for _, ids := range store.rolePermissions {
		if slices.Contains(ids, permissionID) {
			count++
		}
	}
	return count, nil
}

func (store *Store) ids(guard rbac.Guard, names []rbac.PermissionName) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		record, ok := store.permission(guard, name)
		if !ok {
			return nil, apperr.ValidationError("Unknown permissions",
				apperr.FieldError{Field: "permissions", Message: fmt.Sprintf("%s does not exist for guard %s", name, guard)})
		}
		ids = append(ids, record.ID)
	}
	return ids, nil
}

func (store *Store) SyncRolePermissions(_ context.Context, role *rbac.Role, names []rbac.PermissionName) error {
	if store.Fail != nil {
		return store.Fail
	}

	ids, err := store.ids(role.Guard, names)
	if err != nil {
		return err
	}

	store.mu.Lock()
	store.rolePermissions[role.ID] = ids
	store.mu.Unlock()
	return nil
}

func (store *Store) AssignRoles(_ context.Context, guard rbac.Guard, principalID string, roleIDs []string) error {
	if store.Fail != nil {
		return store.Fail
	}

	store.mu.Lock()
	store.principalRoles[principalKey(guard, principalID)] = slices.Clone(roleIDs)
	store.mu.Unlock()
	return nil
}

func (store *Store) GrantPermissions(_ context.Context, guard rbac.Guard, principalID string, names []rbac.PermissionName) error {
	if store.Fail != nil {
		return store.Fail
	}

	ids, err := store.ids(guard, names)
	if err != nil {
		return err
	}

	store.mu.Lock()
	store.principalPermissions[principalKey(guard, principalID)] = ids
	store.mu.Unlock()
	return nil
}

func (store *Store) UpsertCatalog(ctx context.Context, registry *rbac.Registry) error {
	if store.Fail != nil {
		return store.Fail
	}

	for _, guard := range rbac.Guards() {
		for _, name := range registry.Permissions(guard) {
			if _, ok := store.permission(guard, name); !ok {
				store.AddPermission(guard, name)
			}
		}

		for _, definition := range registry.Roles(guard) {
			items, _, _ := store.Roles.List(ctx, repository.Criteria{
				Conditions: []repository.Condition{
					{Field: "guard", Operator: repository.OpEqual, Value: guard},
					{Field: "name", Operator: repository.OpEqual, Value: definition.Key.Name},
				},
				SortField: "name",
			})
			if len(items) == 0 {
				store.AddRole(guard, definition.Key.Name, definition.Level, definition.Permissions...)
			}
		}
	}
	return nil
}

// RoleByName finds a stored role by its composite key.
func (store *Store) RoleByName(guard rbac.Guard, name rbac.RoleName) (*rbac.Role, bool) {
	items, _, _ := store.Roles.List(context.Background(), repository.Criteria{
		Conditions: []repository.Condition{
			{Field: "guard", Operator: repository.OpEqual, Value: guard},
			{Field: "name", Operator: repository.OpEqual, Value: name},
		},
		SortField: "name",
	})
	if len(items) == 0 {
		return nil, false
	}
	return items[0], true
}
