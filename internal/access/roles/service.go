// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package roles manages the persisted roles and permissions of every guard.

Each mutation is authorised by the policy evaluator before it touches
storage. Concurrent edits of the same role are last-write-wins.
*/
package roles

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/taibuivan/backoffice/internal/access/policy"
	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/validate"
	"github.com/taibuivan/backoffice/pkg/uuid"
)

// # Payloads

// RoleInput is the payload of a new role.
type RoleInput struct {
	Guard       string   `json:"guard" validate:"required,oneof=user admin"`
	Name        string   `json:"name" validate:"required,slug,max=50"`
	Level       int      `json:"level" validate:"required,gte=1,lte=1000"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,permission"`
}

// RoleUpdate is a partial update of a role.
type RoleUpdate struct {
	Name        *string `json:"name" validate:"omitempty,slug,max=50"`
	Level       *int    `json:"level" validate:"omitempty,gte=1,lte=1000"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// PermissionInput is the payload of a new permission.
type PermissionInput struct {
	Guard       string `json:"guard" validate:"required,oneof=user admin"`
	Name        string `json:"name" validate:"required,permission"`
	Description string `json:"description" validate:"max=255"`
}

// # Service

// Service manages roles, permissions and role assignments.
type Service struct {
	roles       *repository.Repository[*rbac.Role]
	permissions *repository.Repository[*rbac.PermissionRecord]
	store       rbac.Store
	registry    *rbac.Registry
	resolver    *rbac.GrantResolver
	logger      *slog.Logger

	rolePolicy       policy.RolePolicy
	permissionPolicy policy.PermissionPolicy
}

// NewService wires the role and permission repositories with the relational store.
func NewService(
	roles *repository.Repository[*rbac.Role],
	permissions *repository.Repository[*rbac.PermissionRecord],
	store rbac.Store,
	registry *rbac.Registry,
	logger *slog.Logger,
) *Service {
	return &Service{
		roles:       roles,
		permissions: permissions,
		store:       store,
		registry:    registry,
		resolver:    rbac.NewGrantResolver(store),
		logger:      logger,
	}
}

// # Catalog

// SyncCatalog makes the persisted catalog a superset of the static registry.
func (service *Service) SyncCatalog(ctx context.Context) error {
	if err := service.store.UpsertCatalog(ctx, service.registry); err != nil {
		return fmt.Errorf("rbac_catalog_sync_failed: %w", err)
	}

	service.logger.Info("rbac_catalog_synced",
		slog.Int("admin_permissions", len(service.registry.Permissions(rbac.GuardAdmin))),
		slog.Int("user_permissions", len(service.registry.Permissions(rbac.GuardUser))),
	)
	return nil
}

// Grants returns the current grants of a principal.
func (service *Service) Grants(ctx context.Context, guard rbac.Guard, principalID string) (rbac.Grants, error) {
	return service.resolver.Resolve(ctx, guard, principalID)
}

// # Roles

// ListRoles returns one page of roles.
func (service *Service) ListRoles(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[*rbac.Role], error) {
	if err := service.rolePolicy.ViewAny(actor).Err(); err != nil {
		return nil, err
	}
	return service.roles.Paginate(ctx, query)
}

// GetRole returns a role with its permissions and holder count.
func (service *Service) GetRole(ctx context.Context, actor policy.Actor, id string) (*rbac.Role, error) {
	if err := service.rolePolicy.ViewAny(actor).Err(); err != nil {
		return nil, err
	}
	return service.loadRole(ctx, id)
}

// ExportRoles serialises the filtered roles.
func (service *Service) ExportRoles(ctx context.Context, actor policy.Actor, filters repository.Filters, format repository.Format) (*repository.Export, error) {
	if err := service.rolePolicy.Export(actor).Err(); err != nil {
		return nil, err
	}
	return service.roles.Export(ctx, filters, format)
}

/*
CreateRole persists a new role, optionally with its initial permissions.

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - input: RoleInput

Returns:
  - *rbac.Role: The created role
  - error: Forbidden, Conflict (name taken in the guard) or ValidationError
*/
func (service *Service) CreateRole(ctx context.Context, actor policy.Actor, input RoleInput) (*rbac.Role, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	guard, err := rbac.ParseGuard(input.Guard)
	if err != nil {
		return nil, err
	}
	name, err := rbac.ParseRoleName(input.Name)
	if err != nil {
		return nil, err
	}

	if err := service.rolePolicy.Create(actor, input.Level).Err(); err != nil {
		return nil, err
	}

	if err := service.ensureRoleNameFree(ctx, guard, name); err != nil {
		return nil, err
	}

	permissions, err := service.resolvePermissions(ctx, guard, input.Permissions)
	if err != nil {
		return nil, err
	}

	role, err := service.roles.Create(ctx, &rbac.Role{
		ID:          uuid.New(),
		Guard:       guard,
		Name:        name,
		Level:       input.Level,
		Description: input.Description,
	})
	if err != nil {
		return nil, err
	}

	if len(permissions) > 0 {
		if err := service.store.SyncRolePermissions(ctx, role, permissions); err != nil {
			return nil, err
		}
	}
	role.Permissions = permissions

	service.logger.Info("role_created",
		slog.String("role", role.Key().String()),
		slog.Int("level", role.Level),
		slog.String("actor_id", actor.ID),
	)
	return role, nil
}

/*
UpdateRole edits the name, level or description of a role.

Description: The actor must outrank the role as it is now, and a new level
must also sit below the actor's. Protected roles cannot be renamed.

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - id: string
  - input: RoleUpdate

Returns:
  - *rbac.Role: The updated role
  - error: NotFound, Forbidden, Conflict or ValidationError
*/
func (service *Service) UpdateRole(ctx context.Context, actor policy.Actor, id string, input RoleUpdate) (*rbac.Role, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	role, err := service.loadRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := service.rolePolicy.Update(actor, policy.TargetOf(role)).Err(); err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if input.Name != nil {
		name, err := rbac.ParseRoleName(*input.Name)
		if err != nil {
			return nil, err
		}
		if name != role.Name {
			if rbac.IsProtectedRole(role.Name) {
				return nil, apperr.Conflict(fmt.Sprintf("Role %s is system-protected", role.Name))
			}
			if err := service.ensureRoleNameFree(ctx, role.Guard, name); err != nil {
				return nil, err
			}
			fields["name"] = string(name)
		}
	}

	if input.Level != nil && *input.Level != role.Level {
		if err := service.rolePolicy.Create(actor, *input.Level).Err(); err != nil {
			return nil, err
		}
		fields["level"] = *input.Level
	}

	if input.Description != nil {
		fields["description"] = *input.Description
	}

	if len(fields) == 0 {
		return role, nil
	}

	updated, err := service.roles.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	updated.Permissions = role.Permissions
	updated.PrincipalCount = role.PrincipalCount

	service.logger.Info("role_updated", slog.String("role", updated.Key().String()), slog.String("actor_id", actor.ID))
	return updated, nil
}

/*
SyncPermissions replaces the permission set of a role.

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - id: string
  - names: []string (must exist in the role's guard)

Returns:
  - *rbac.Role: The role with its new permissions
  - error: Forbidden or ValidationError (unknown or cross-guard name)
*/
func (service *Service) SyncPermissions(ctx context.Context, actor policy.Actor, id string, names []string) (*rbac.Role, error) {
	role, err := service.loadRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := service.rolePolicy.SyncPermissions(actor, policy.TargetOf(role)).Err(); err != nil {
		return nil, err
	}

	permissions, err := service.resolvePermissions(ctx, role.Guard, names)
	if err != nil {
		return nil, err
	}

	if err := service.store.SyncRolePermissions(ctx, role, permissions); err != nil {
		return nil, err
	}
	role.Permissions = permissions

	service.logger.Info("role_permissions_synced",
		slog.String("role", role.Key().String()),
		slog.Int("permissions", len(permissions)),
		slog.String("actor_id", actor.ID),
	)
	return role, nil
}

// DeleteRole removes an unreferenced, unprotected role.
func (service *Service) DeleteRole(ctx context.Context, actor policy.Actor, id string) error {
	role, err := service.loadRole(ctx, id)
	if err != nil {
		return err
	}
	if err := service.rolePolicy.Delete(actor, policy.TargetOf(role)).Err(); err != nil {
		return err
	}

	if err := service.roles.Delete(ctx, id); err != nil {
		return err
	}

	service.logger.Warn("role_deleted", slog.String("role", role.Key().String()), slog.String("actor_id", actor.ID))
	return nil
}

func (service *Service) loadRole(ctx context.Context, id string) (*rbac.Role, error) {
	role, err := service.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if role.Permissions, err = service.store.RolePermissions(ctx, role.ID); err != nil {
		return nil, err
	}
	if role.PrincipalCount, err = service.store.CountRoleHolders(ctx, role.ID); err != nil {
		return nil, err
	}
	return role, nil
}

func (service *Service) ensureRoleNameFree(ctx context.Context, guard rbac.Guard, name rbac.RoleName) error {
	existing, err := service.roles.All(ctx, repository.Filters{"guard": guard.String(), "name": string(name)})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return apperr.Conflict(fmt.Sprintf("Role %s already exists in guard %s", name, guard))
	}
	return nil
}

// # Permissions

// ListPermissions returns one page of permissions.
func (service *Service) ListPermissions(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[*rbac.PermissionRecord], error) {
	if err := service.permissionPolicy.ViewAny(actor).Err(); err != nil {
		return nil, err
	}
	return service.permissions.Paginate(ctx, query)
}

// CreatePermission persists a new permission in a guard.
func (service *Service) CreatePermission(ctx context.Context, actor policy.Actor, input PermissionInput) (*rbac.PermissionRecord, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if err := service.permissionPolicy.Create(actor).Err(); err != nil {
		return nil, err
	}

	guard, err := rbac.ParseGuard(input.Guard)
	if err != nil {
		return nil, err
	}
	name, err := rbac.ParsePermissionName(input.Name)
	if err != nil {
		return nil, err
	}

	existing, err := service.permissions.All(ctx, repository.Filters{"guard": guard.String(), "name": string(name)})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, apperr.Conflict(fmt.Sprintf("Permission %s already exists in guard %s", name, guard))
	}

	record, err := service.permissions.Create(ctx, &rbac.PermissionRecord{
		ID:          uuid.New(),
		Guard:       guard,
		Name:        name,
		Description: input.Description,
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("permission_created", slog.String("permission", record.Permission().String()), slog.String("actor_id", actor.ID))
	return record, nil
}

// DeletePermission removes an unprotected permission no role grants.
func (service *Service) DeletePermission(ctx context.Context, actor policy.Actor, id string) error {
	record, err := service.permissions.FindByID(ctx, id)
	if err != nil {
		return err
	}

	target := policy.PermissionTarget{Permission: record.Permission()}
	if !rbac.IsProtectedPermission(record.Name) {
		if target.Roles, err = service.store.CountPermissionRoles(ctx, record.ID); err != nil {
			return err
		}
	}

	if err := service.permissionPolicy.Delete(actor, target).Err(); err != nil {
		return err
	}

	if err := service.permissions.Delete(ctx, id); err != nil {
		return err
	}

	service.logger.Warn("permission_deleted", slog.String("permission", record.Permission().String()), slog.String("actor_id", actor.ID))
	return nil
}

// resolvePermissions parses names and checks they exist in guard.
func (service *Service) resolvePermissions(ctx context.Context, guard rbac.Guard, raw []string) ([]rbac.PermissionName, error) {
	names := make([]rbac.PermissionName, 0, len(raw))
	for _, value := range raw {
		name, err := rbac.ParsePermissionName(value)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return names, nil
	}

	values := make([]any, len(names))
	for i, name := range names {
		values[i] = string(name)
	}
	records, err := service.permissions.All(ctx, repository.Filters{"guard": guard.String(), "name": values})
	if err != nil {
		return nil, err
	}

	var details []apperr.FieldError
	for _, name := range names {
		found := slices.ContainsFunc(records, func(record *rbac.PermissionRecord) bool { return record.Name == name })
		if !found {
			details = append(details, apperr.FieldError{
				Field:   "permissions",
				Message: fmt.Sprintf("%s does not exist for guard %s", name, guard),
			})
		}
	}
	if len(details) > 0 {
		return nil, apperr.ValidationError("Unknown permissions", details...)
	}

	slices.Sort(names)
	return names, nil
}

// # Assignments

/*
AuthorizeAssignment checks that the actor may give principalID exactly the
roles in roleIDs, without changing anything.

Description: Loads the roles (all from guard) and the principal's current
grants, then applies the principal policy. A principal that does not exist
yet holds nothing, so callers may check before creating it.

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - guard: rbac.Guard (the principal's realm)
  - principalID: string
  - roleIDs: []string

Returns:
  - error: Forbidden, NotFound or ValidationError (role from another guard)
*/
func (service *Service) AuthorizeAssignment(ctx context.Context, actor policy.Actor, guard rbac.Guard, principalID string, roleIDs []string) error {
	targets := make([]policy.RoleTarget, 0, len(roleIDs))
	for _, id := range roleIDs {
		role, err := service.roles.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if role.Guard != guard {
			return apperr.ValidationError("Role belongs to another guard",
				apperr.FieldError{Field: "roles", Message: fmt.Sprintf("%s is not a %s role", role.Key(), guard)})
		}
		targets = append(targets, policy.TargetOf(role))
	}

	current, err := service.resolver.Resolve(ctx, guard, principalID)
	if err != nil {
		return err
	}

	target := policy.PrincipalTarget{ID: principalID, Level: current.Level}
	return policy.PolicyFor(guard).AssignRoles(actor, target, targets).Err()
}

/*
AssignRoles replaces the roles a principal holds in guard.

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - guard: rbac.Guard (the principal's realm)
  - principalID: string (existence is checked by the caller)
  - roleIDs: []string

Returns:
  - rbac.Grants: The principal's grants after the change
  - error: Forbidden, NotFound or ValidationError (role from another guard)
*/
func (service *Service) AssignRoles(ctx context.Context, actor policy.Actor, guard rbac.Guard, principalID string, roleIDs []string) (rbac.Grants, error) {
	if err := service.AuthorizeAssignment(ctx, actor, guard, principalID, roleIDs); err != nil {
		return rbac.Grants{}, err
	}

	if err := service.store.AssignRoles(ctx, guard, principalID, roleIDs); err != nil {
		return rbac.Grants{}, err
	}

	service.logger.Info("principal_roles_assigned",
		slog.String("guard", guard.String()),
		slog.String("principal_id", principalID),
		slog.Int("roles", len(roleIDs)),
		slog.String("actor_id", actor.ID),
	)
	return service.resolver.Resolve(ctx, guard, principalID)
}
