// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package repository is the entity-agnostic data-access engine shared by every
back-office resource (users, admins, roles, permissions, membership packages).

One [Repository] provides:

  - CRUD by identifier or by field
  - filtered, searched, sorted, clamped pagination
  - the soft-delete lifecycle (trashed lookups, restore, force delete)
  - bulk actions with an explicit failure-isolation policy
  - export as JSON, CSV or XML

# Capabilities

Soft delete is a capability, not a trait: an entity type opts in by
implementing [SoftDeletable]. For other types, delete is terminal, restore
reports false, force delete behaves as delete and trashed listings are empty.

# Storage

The engine speaks to storage through [Backend]. Production uses the bun
backend ([NewBunBackend]); tests use repositorytest.MemoryBackend.
*/
package repository

import (
	"context"
	"slices"
	"time"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// # Entity Contracts

// Entity is any record managed through a [Repository].
type Entity interface {
	PrimaryKey() string
}

// SoftDeletable entities keep a deletion marker instead of being removed.
type SoftDeletable interface {
	Entity
	IsTrashed() bool
}

// Stamped entities receive creation and update timestamps from the engine.
type Stamped interface {
	Touch(now time.Time, creating bool)
}

// Trashed selects which lifecycle states a lookup sees.
type Trashed int

const (
	ExcludeTrashed Trashed = iota
	WithTrashed
	OnlyTrashed
)

// # Resource Description

// Descriptor names a resource and whitelists its columns.
//
// Column names double as JSON keys of the entity, so exported records and
// update payloads use the same vocabulary as filters.
type Descriptor[T Entity] struct {
	// Name is the singular label used in error messages ("Package").
	Name string
	// Collection is the plural label used for export roots and file names ("packages").
	Collection string

	// New allocates an empty entity.
	New func() T

	// Columns may be filtered, sorted, exported and (minus Immutable) updated.
	Columns []string
	// Searchable is the default field list for free-text search.
	Searchable []string
	// Immutable columns are rejected in update payloads.
	Immutable []string

	DefaultSort string

	// StatusColumn, ActiveValue and InactiveValue back the activate/deactivate bulk actions.
	StatusColumn  string
	ActiveValue   any
	InactiveValue any

	// UpdatedColumn is refreshed on every patch when set.
	UpdatedColumn string
}

// HasColumn reports whether column is whitelisted.
func (d Descriptor[T]) HasColumn(column string) bool {
	return slices.Contains(d.Columns, column)
}

// NotFound builds the resource-specific NotFound error.
func (d Descriptor[T]) NotFound() *apperr.AppError {
	return apperr.NotFound(d.Name)
}

// # Engine

// Repository is the generic engine bound to one entity type and one backend.
type Repository[T Entity] struct {
	backend     Backend[T]
	descriptor  Descriptor[T]
	policy      pagination.Policy
	softDeletes bool
	clock       func() time.Time
}

// New binds a backend and a descriptor under the given page-size policy.
func New[T Entity](backend Backend[T], descriptor Descriptor[T], policy pagination.Policy) *Repository[T] {
	var zero T
	_, softDeletes := any(zero).(SoftDeletable)

	if descriptor.DefaultSort == "" {
		descriptor.DefaultSort = "created_at"
	}

	return &Repository[T]{
		backend:     backend,
		descriptor:  descriptor,
		policy:      policy,
		softDeletes: softDeletes,
		clock:       time.Now,
	}
}

// Descriptor returns the resource description.
func (repository *Repository[T]) Descriptor() Descriptor[T] {
	return repository.descriptor
}

// SupportsSoftDelete reports whether T implements [SoftDeletable].
func (repository *Repository[T]) SupportsSoftDelete() bool {
	return repository.softDeletes
}

// # Lookups

// FindByID returns an active entity or NotFound.
func (repository *Repository[T]) FindByID(ctx context.Context, id string) (T, error) {
	return repository.backend.FindOne(ctx, "id", id, ExcludeTrashed)
}

// FindByField returns the first active entity whose column equals value.
func (repository *Repository[T]) FindByField(ctx context.Context, field string, value any) (T, error) {
	if !repository.descriptor.HasColumn(field) {
		var zero T
		return zero, apperr.ValidationError("Invalid lookup field",
			apperr.FieldError{Field: field, Message: "Unknown field"})
	}
	return repository.backend.FindOne(ctx, field, value, ExcludeTrashed)
}

// FindWithTrashed returns the entity in any lifecycle state.
func (repository *Repository[T]) FindWithTrashed(ctx context.Context, id string) (T, error) {
	if !repository.softDeletes {
		return repository.FindByID(ctx, id)
	}
	return repository.backend.FindOne(ctx, "id", id, WithTrashed)
}

// FindOnlyTrashed returns the entity only if it is soft-deleted.
func (repository *Repository[T]) FindOnlyTrashed(ctx context.Context, id string) (T, error) {
	if !repository.softDeletes {
		var zero T
		return zero, repository.descriptor.NotFound()
	}
	return repository.backend.FindOne(ctx, "id", id, OnlyTrashed)
}

// # Mutations

// Create persists a new entity.
func (repository *Repository[T]) Create(ctx context.Context, entity T) (T, error) {
	if stamped, ok := any(entity).(Stamped); ok {
		stamped.Touch(repository.clock(), true)
	}
	if err := repository.backend.Insert(ctx, entity); err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

// Update patches whitelisted columns of an active entity and returns it reloaded.
func (repository *Repository[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	var zero T

	patch, err := repository.patch(fields)
	if err != nil {
		return zero, err
	}

	if err := repository.backend.Patch(ctx, id, patch); err != nil {
		return zero, err
	}
	return repository.FindByID(ctx, id)
}

// Delete soft-deletes when supported, otherwise removes the entity.
func (repository *Repository[T]) Delete(ctx context.Context, id string) error {
	return repository.delete(ctx, repository.backend, id)
}

func (repository *Repository[T]) delete(ctx context.Context, backend Backend[T], id string) error {
	if repository.softDeletes {
		return backend.SoftDelete(ctx, id)
	}
	return backend.HardDelete(ctx, id)
}

// Restore brings a soft-deleted entity back.
//
// It reports false without error when the type has no soft-delete capability
// or the entity is not trashed, and NotFound when the id does not exist at all.
func (repository *Repository[T]) Restore(ctx context.Context, id string) (bool, error) {
	if !repository.softDeletes {
		return false, nil
	}

	entity, err := repository.backend.FindOne(ctx, "id", id, WithTrashed)
	if err != nil {
		return false, err
	}
	if !any(entity).(SoftDeletable).IsTrashed() {
		return false, nil
	}

	if err := repository.backend.Restore(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// ForceDelete removes the entity permanently whatever its state.
// Without soft-delete capability it is the ordinary delete.
func (repository *Repository[T]) ForceDelete(ctx context.Context, id string) error {
	return repository.backend.HardDelete(ctx, id)
}

// patch validates an update payload against the column whitelist.
func (repository *Repository[T]) patch(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, apperr.ValidationError("Nothing to update")
	}

	var details []apperr.FieldError
	patch := make(map[string]any, len(fields)+1)
	for column, value := range fields {
		switch {
		case !repository.descriptor.HasColumn(column):
			details = append(details, apperr.FieldError{Field: column, Message: "Unknown field"})
		case column == "id" || slices.Contains(repository.descriptor.Immutable, column):
			details = append(details, apperr.FieldError{Field: column, Message: "Field cannot be updated"})
		default:
			patch[column] = value
		}
	}

	if len(details) > 0 {
		return nil, apperr.ValidationError("Invalid update payload", details...)
	}

	if column := repository.descriptor.UpdatedColumn; column != "" {
		patch[column] = repository.clock()
	}
	return patch, nil
}

// # Listings

// Paginate returns one page of active entities.
func (repository *Repository[T]) Paginate(ctx context.Context, query Query) (*Page[T], error) {
	return repository.paginate(ctx, query, ExcludeTrashed)
}

// ListTrashed returns one page of soft-deleted entities (always empty without the capability).
func (repository *Repository[T]) ListTrashed(ctx context.Context, query Query) (*Page[T], error) {
	if !repository.softDeletes {
		criteria, page, err := repository.criteria(query, OnlyTrashed)
		if err != nil {
			return nil, err
		}
		return &Page[T]{Items: []T{}, Meta: pagination.NewMeta(page, criteria.Limit, 0, 0)}, nil
	}
	return repository.paginate(ctx, query, OnlyTrashed)
}

func (repository *Repository[T]) paginate(ctx context.Context, query Query, trashed Trashed) (*Page[T], error) {
	criteria, page, err := repository.criteria(query, trashed)
	if err != nil {
		return nil, err
	}

	items, total, err := repository.backend.List(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}

	return &Page[T]{
		Items: items,
		Meta:  pagination.NewMeta(page, criteria.Limit, total, len(items)),
	}, nil
}

// All returns every active entity matching filters, in default order.
func (repository *Repository[T]) All(ctx context.Context, filters Filters) ([]T, error) {
	conditions, err := repository.conditions(filters)
	if err != nil {
		return nil, err
	}

	items, _, err := repository.backend.List(ctx, Criteria{
		Conditions: conditions,
		SortField:  repository.descriptor.DefaultSort,
		Direction:  Descending,
	})
	return items, err
}
