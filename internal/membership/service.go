// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package membership

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/backoffice/internal/access/policy"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/resource"
	"github.com/taibuivan/backoffice/internal/platform/validate"
	"github.com/taibuivan/backoffice/pkg/slug"
	"github.com/taibuivan/backoffice/pkg/uuid"
)

// # Payloads

// CreateInput is the payload of a new package. An empty slug is derived from the name.
type CreateInput struct {
	Name         string `json:"name" validate:"required,max=100"`
	Slug         string `json:"slug" validate:"omitempty,max=120"`
	Description  string `json:"description" validate:"max=2000"`
	PriceCents   int64  `json:"price_cents" validate:"gte=0"`
	DurationDays int    `json:"duration_days" validate:"required,gte=1,lte=3650"`
	Status       string `json:"status" validate:"omitempty,oneof=active inactive"`
	IsFeatured   bool   `json:"is_featured"`
}

// UpdateInput is a partial update of a package.
type UpdateInput struct {
	Name         *string `json:"name" validate:"omitempty,max=100"`
	Slug         *string `json:"slug" validate:"omitempty,max=120"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	PriceCents   *int64  `json:"price_cents" validate:"omitempty,gte=0"`
	DurationDays *int    `json:"duration_days" validate:"omitempty,gte=1,lte=3650"`
	Status       *string `json:"status" validate:"omitempty,oneof=active inactive"`
	IsFeatured   *bool   `json:"is_featured"`
}

// # Service

// Service manages the package catalog.
type Service struct {
	repo      *repository.Repository[*Package]
	counter   MembershipCounter
	policy    policy.PackagePolicy
	isolation repository.Isolation
	logger    *slog.Logger
}

// NewService builds the package service.
func NewService(repo *repository.Repository[*Package], counter MembershipCounter, isolation repository.Isolation, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		counter:   counter,
		isolation: isolation,
		logger:    logger,
	}
}

// # Read

// List pages through live packages.
func (service *Service) List(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[*Package], error) {
	if err := service.policy.ViewAny(actor).Err(); err != nil {
		return nil, err
	}
	return service.repo.Paginate(ctx, query)
}

// Catalog lists the packages currently offered, whatever status filter the caller sent.
func (service *Service) Catalog(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[*Package], error) {
	filters := repository.Filters{}
	for field, value := range query.Filters {
		filters[field] = value
	}
	filters[FieldStatus] = string(StatusActive)
	query.Filters = filters

	return service.List(ctx, actor, query)
}

// ListTrashed pages through soft-deleted packages.
func (service *Service) ListTrashed(ctx context.Context, actor policy.Actor, query repository.Query) (*repository.Page[*Package], error) {
	if err := service.policy.ViewAny(actor).Err(); err != nil {
		return nil, err
	}
	return service.repo.ListTrashed(ctx, query)
}

// Get returns one live package.
func (service *Service) Get(ctx context.Context, actor policy.Actor, id string) (*Package, error) {
	if err := service.policy.View(actor).Err(); err != nil {
		return nil, err
	}
	return service.repo.FindByID(ctx, id)
}

// Export serialises the filtered packages.
func (service *Service) Export(ctx context.Context, actor policy.Actor, filters repository.Filters, format repository.Format) (*repository.Export, error) {
	if err := service.policy.Export(actor).Err(); err != nil {
		return nil, err
	}
	return service.repo.Export(ctx, filters, format)
}

// # Write

/*
Create validates and persists a new package.

Parameters:
  - ctx: context.Context
  - actor: policy.Actor
  - input: CreateInput

Returns:
  - *Package: Created package
  - error: Forbidden, ValidationError or Conflict (slug taken)
*/
func (service *Service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (*Package, error) {
	if err := service.policy.Create(actor).Err(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	packageSlug, err := normaliseSlug(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	if err := service.ensureSlugFree(ctx, packageSlug, ""); err != nil {
		return nil, err
	}

	status := StatusActive
	if input.Status != "" {
		status = Status(input.Status)
	}

	created, err := service.repo.Create(ctx, &Package{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Slug:         packageSlug,
		Description:  strings.TrimSpace(input.Description),
		PriceCents:   input.PriceCents,
		DurationDays: input.DurationDays,
		Status:       status,
		IsFeatured:   input.IsFeatured,
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("package_created", slog.String("package_id", created.ID), slog.String("actor_id", actor.ID))
	return created, nil
}

// Update edits a package. Renaming keeps the slug unless a new one is given.
func (service *Service) Update(ctx context.Context, actor policy.Actor, id string, input UpdateInput) (*Package, error) {
	if err := service.policy.Update(actor).Err(); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	current, err := service.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if input.Name != nil {
		fields[FieldName] = strings.TrimSpace(*input.Name)
	}
	if input.Slug != nil {
		packageSlug, err := normaliseSlug(*input.Slug, "")
		if err != nil {
			return nil, err
		}
		if packageSlug != current.Slug {
			if err := service.ensureSlugFree(ctx, packageSlug, id); err != nil {
				return nil, err
			}
			fields[FieldSlug] = packageSlug
		}
	}
	if input.Description != nil {
		fields[FieldDescription] = strings.TrimSpace(*input.Description)
	}
	if input.PriceCents != nil {
		fields[FieldPriceCents] = *input.PriceCents
	}
	if input.DurationDays != nil {
		fields[FieldDurationDays] = *input.DurationDays
	}
	if input.Status != nil {
		fields[FieldStatus] = *input.Status
	}
	if input.IsFeatured != nil {
		fields[FieldIsFeatured] = *input.IsFeatured
	}

	if len(fields) == 0 {
		return current, nil
	}

	updated, err := service.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}

	service.logger.Info("package_updated", slog.String("package_id", id), slog.String("actor_id", actor.ID))
	return updated, nil
}

// Delete moves a package to the trash unless active memberships reference it.
func (service *Service) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := service.policy.Delete(actor).Err(); err != nil {
		return err
	}
	if _, err := service.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := service.ensureUnused(ctx, id); err != nil {
		return err
	}
	if err := service.repo.Delete(ctx, id); err != nil {
		return err
	}

	service.logger.Warn("package_deleted", slog.String("package_id", id), slog.String("actor_id", actor.ID))
	return nil
}

// Restore brings a package back from the trash.
func (service *Service) Restore(ctx context.Context, actor policy.Actor, id string) (*Package, error) {
	if err := service.policy.Restore(actor).Err(); err != nil {
		return nil, err
	}
	return resource.Restore(ctx, service.repo, id)
}

// ForceDelete removes a package permanently, trashed or not, under the same
// membership rule as Delete.
func (service *Service) ForceDelete(ctx context.Context, actor policy.Actor, id string) error {
	if err := service.policy.ForceDelete(actor).Err(); err != nil {
		return err
	}
	if _, err := service.repo.FindWithTrashed(ctx, id); err != nil {
		return err
	}
	if err := service.ensureUnused(ctx, id); err != nil {
		return err
	}
	if err := service.repo.ForceDelete(ctx, id); err != nil {
		return err
	}

	service.logger.Warn("package_force_deleted", slog.String("package_id", id), slog.String("actor_id", actor.ID))
	return nil
}

// Bulk applies one action to many packages; packages still in use are
// refused per item on delete.
func (service *Service) Bulk(ctx context.Context, actor policy.Actor, input resource.BulkInput) (*repository.BulkReport, error) {
	if err := service.policy.Bulk(actor).Err(); err != nil {
		return nil, err
	}

	return resource.Bulk(ctx, service.repo, input, service.isolation, func(ctx context.Context, action repository.BulkAction, entity *Package) error {
		if action != repository.BulkDelete {
			return nil
		}
		return service.ensureUnused(ctx, entity.ID)
	})
}

// # Helpers

func (service *Service) ensureUnused(ctx context.Context, id string) error {
	count, err := service.counter.CountActive(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict(fmt.Sprintf("Package has %d active memberships", count))
	}
	return nil
}

func (service *Service) ensureSlugFree(ctx context.Context, packageSlug, exceptID string) error {
	existing, err := service.repo.FindByField(ctx, FieldSlug, packageSlug)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil
		}
		return err
	}
	if existing.ID == exceptID {
		return nil
	}
	return apperr.Conflict("The slug is already in use")
}

// normaliseSlug slugifies the explicit value, falling back to the name.
func normaliseSlug(explicit, name string) (string, error) {
	source := explicit
	if strings.TrimSpace(source) == "" {
		source = name
	}

	result := slug.Make(source, slug.MaxLength)
	if result == "" {
		return "", apperr.ValidationError("Invalid slug",
			apperr.FieldError{Field: FieldSlug, Message: "Must contain letters or digits"})
	}
	return result, nil
}
