// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/backoffice/internal/access/policy"
	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/access/roles"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/resource"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/internal/platform/validate"
	"github.com/taibuivan/backoffice/pkg/uuid"
)

// # Payloads

// CreateInput is the payload of a new principal.
type CreateInput struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Username string   `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Status   string   `json:"status" validate:"omitempty,oneof=active inactive suspended"`
	Roles    []string `json:"roles" validate:"omitempty,dive,uuid"`
}

// UpdateInput is a partial update of a principal.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Username *string `json:"username" validate:"omitempty,min=3,max=50,alphanum"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	Status   *string `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// # Service

// Service manages the principals of one guard.
type Service[T Principal] struct {
	guard     rbac.Guard
	repo      *repository.Repository[T]
	store     Store
	roles     *roles.Service
	policy    policy.PrincipalPolicy
	isolation repository.Isolation
	logger    *slog.Logger
}

// NewService builds the service of the principals authenticating in guard.
func NewService[T Principal](
	guard rbac.Guard,
	repo *repository.Repository[T],
	store Store,
	roles *roles.Service,
	isolation repository.Isolation,
	logger *slog.Logger,
) *Service[T] {
	return &Service[T]{
		guard:     guard,
		repo:      repo,
		store:     store,
		roles:     roles,
		policy:    policy.PolicyFor(guard),
		isolation: isolation,
		logger:    logger,
	}
}

// # Read

// List pages through live principals.
func (service *Service[T]) List(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[T], error) {
	if err := service.policy.ViewAny(actor).Err(); err != nil {
		return nil, err
	}
	return service.repo.Paginate(ctx, query)
}

// ListTrashed pages through soft-deleted principals.
func (service *Service[T]) ListTrashed(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[T], error) {
	if err := service.policy.ViewAny(actor).Err(); err != nil {
		return nil, err
	}
	return service.repo.ListTrashed(ctx, query)
}

// Get returns one principal; principals may always read their own record.
func (service *Service[T]) Get(ctx context.Context, actor policy.Actor, id string) (T, error) {
	if err := service.policy.View(actor, id).Err(); err != nil {
		var zero T
		return zero, err
	}
	return service.repo.FindByID(ctx, id)
}

// Export serialises the filtered principals without credentials.
func (service *Service[T]) Export(ctx context.Context, actor policy.Actor, filters repository.Filters, format repository.Format) (*repository.Export, error) {
	if err := service.policy.Export(actor).Err(); err != nil {
		return nil, err
	}
	return service.repo.Export(ctx, filters, format)
}

// # Write

/*
Create validates, hashes and persists a new principal.

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - input: CreateInput

Returns:
  - T: Created principal
  - error: Forbidden, ValidationError or Conflict (email/username taken)
*/
func (service *Service[T]) Create(ctx context.Context, actor policy.Actor, input CreateInput) (T, error) {
	var zero T

	if err := service.policy.Create(actor).Err(); err != nil {
		return zero, err
	}
	if err := validate.Struct(input); err != nil {
		return zero, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := service.ensureFree(ctx, FieldEmail, email, ""); err != nil {
		return zero, err
	}
	if err := service.ensureFree(ctx, FieldUsername, input.Username, ""); err != nil {
		return zero, err
	}

	status := StatusActive
	if input.Status != "" {
		status = Status(input.Status)
	}

	// Prevent storing plain-text passwords
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return zero, fmt.Errorf("account_service_hash_failed: %w", err)
	}

	entity := service.repo.Descriptor().New()
	profile := entity.Base()
	profile.ID = uuid.New()

	// Nothing is stored unless the starting roles are allowed
	if len(input.Roles) > 0 {
		if err := service.roles.AuthorizeAssignment(ctx, actor, service.guard, profile.ID, input.Roles); err != nil {
			return zero, err
		}
	}

	profile.Name = strings.TrimSpace(input.Name)
	profile.Username = input.Username
	profile.Email = email
	profile.PasswordHash = hashedPassword
	profile.Status = status

	created, err := service.repo.Create(ctx, entity)
	if err != nil {
		return zero, err
	}

	if len(input.Roles) > 0 {
		if _, err := service.roles.AssignRoles(ctx, actor, service.guard, profile.ID, input.Roles); err != nil {
			if cleanupErr := service.repo.ForceDelete(ctx, profile.ID); cleanupErr != nil {
				service.logger.Error("principal_create_rollback_failed",
					slog.String("guard", service.guard.String()),
					slog.String("principal_id", profile.ID),
					slog.Any("error", cleanupErr),
				)
			}
			return zero, err
		}
	}

	service.logger.Info("principal_created",
		slog.String("guard", service.guard.String()),
		slog.String("principal_id", profile.ID),
		slog.String("actor_id", actor.ID),
	)
	return created, nil
}

/*
Update edits a principal. Principals may always edit themselves, except
for their own status and password (see the change-password endpoint).

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - id: string
  - input: UpdateInput

Returns:
  - T: Reloaded principal
  - error: NotFound, Forbidden, ValidationError or Conflict
*/
func (service *Service[T]) Update(ctx context.Context, actor policy.Actor, id string, input UpdateInput) (T, error) {
	var zero T

	target, err := service.target(ctx, actor, id)
	if err != nil {
		return zero, err
	}
	if err := service.policy.Update(actor, target).Err(); err != nil {
		return zero, err
	}
	if err := validate.Struct(input); err != nil {
		return zero, err
	}
	if input.Password != nil && actor.Is(service.guard, id) {
		return zero, apperr.ValidationError("Use change-password to replace your own password",
			apperr.FieldError{Field: "password", Message: "requires the current password"})
	}

	current, err := service.repo.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}
	profile := current.Base()

	fields := map[string]any{}

	if input.Name != nil {
		fields[FieldName] = strings.TrimSpace(*input.Name)
	}
	if input.Username != nil && *input.Username != profile.Username {
		if err := service.ensureFree(ctx, FieldUsername, *input.Username, id); err != nil {
			return zero, err
		}
		fields[FieldUsername] = *input.Username
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != profile.Email {
			if err := service.ensureFree(ctx, FieldEmail, email, id); err != nil {
				return zero, err
			}
			fields[FieldEmail] = email
		}
	}
	if input.Status != nil && Status(*input.Status) != profile.Status {
		if actor.Is(service.guard, id) {
			return zero, apperr.Forbidden("You cannot change your own status")
		}
		fields[FieldStatus] = *input.Status
	}

	var hashedPassword string
	if input.Password != nil {
		if hashedPassword, err = sec.HashPassword(*input.Password); err != nil {
			return zero, fmt.Errorf("account_service_hash_failed: %w", err)
		}
	}

	updated := current
	if len(fields) > 0 {
		if updated, err = service.repo.Update(ctx, id, fields); err != nil {
			return zero, err
		}
	}

	// Written last so a rejected field update leaves the credentials alone
	if hashedPassword != "" {
		if err := service.store.UpdatePassword(ctx, service.guard, id, hashedPassword); err != nil {
			return zero, err
		}
	}

	if len(fields) == 0 && hashedPassword == "" {
		return current, nil
	}

	service.logger.Info("principal_updated",
		slog.String("guard", service.guard.String()),
		slog.String("principal_id", id),
		slog.String("actor_id", actor.ID),
	)
	return updated, nil
}

// Delete moves a principal to the trash.
func (service *Service[T]) Delete(ctx context.Context, actor policy.Actor, id string) error {
	target, err := service.target(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := service.policy.Delete(actor, target).Err(); err != nil {
		return err
	}
	if err := service.repo.Delete(ctx, id); err != nil {
		return err
	}

	service.logger.Warn("principal_deleted", slog.String("guard", service.guard.String()), slog.String("principal_id", id), slog.String("actor_id", actor.ID))
	return nil
}

// Restore brings a principal back from the trash.
func (service *Service[T]) Restore(ctx context.Context, actor policy.Actor, id string) (T, error) {
	if err := service.policy.Restore(actor).Err(); err != nil {
		var zero T
		return zero, err
	}
	return resource.Restore(ctx, service.repo, id)
}

// ForceDelete removes a principal permanently, trashed or not.
func (service *Service[T]) ForceDelete(ctx context.Context, actor policy.Actor, id string) error {
	target, err := service.target(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := service.policy.ForceDelete(actor, target).Err(); err != nil {
		return err
	}
	if err := service.repo.ForceDelete(ctx, id); err != nil {
		return err
	}

	service.logger.Warn("principal_force_deleted", slog.String("guard", service.guard.String()), slog.String("principal_id", id), slog.String("actor_id", actor.ID))
	return nil
}

// Bulk applies one action to many principals; the actor's own record is
// refused per item.
func (service *Service[T]) Bulk(ctx context.Context, actor policy.Actor, input resource.BulkInput) (*repository.BulkReport, error) {
	if err := service.policy.Bulk(actor).Err(); err != nil {
		return nil, err
	}

	return resource.Bulk(ctx, service.repo, input, service.isolation, func(ctx context.Context, _ repository.BulkAction, entity T) error {
		target, err := service.target(ctx, actor, entity.PrimaryKey())
		if err != nil {
			return err
		}
		return service.policy.BulkItem(actor, target).Err()
	})
}

// AssignRoles replaces the roles of an existing principal.
func (service *Service[T]) AssignRoles(ctx context.Context, actor policy.Actor, id string, roleIDs []string) (rbac.Grants, error) {
	if _, err := service.repo.FindByID(ctx, id); err != nil {
		return rbac.Grants{}, err
	}
	return service.roles.AssignRoles(ctx, actor, service.guard, id, roleIDs)
}

// target describes principal id for the hierarchy checks. Levels only
// compare within one guard, so the lookup is skipped for staff acting on
// end users, for the actor's own record and for malformed ids, which the
// repository rejects on its own.
func (service *Service[T]) target(ctx context.Context, actor policy.Actor, id string) (policy.PrincipalTarget, error) {
	target := policy.PrincipalTarget{ID: id}
	if actor.Guard != service.guard || actor.Is(service.guard, id) || !uuid.Valid(id) {
		return target, nil
	}

	grants, err := service.roles.Grants(ctx, service.guard, id)
	if err != nil {
		return target, err
	}
	target.Level = grants.Level
	return target, nil
}

// ensureFree fails with Conflict when another live principal uses value.
func (service *Service[T]) ensureFree(ctx context.Context, field, value, exceptID string) error {
	existing, err := service.repo.FindByField(ctx, field, value)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil
		}
		return err
	}
	if existing.PrimaryKey() == exceptID {
		return nil
	}
	return apperr.Conflict(fmt.Sprintf("The %s is already in use", field))
}
