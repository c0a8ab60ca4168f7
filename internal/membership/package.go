// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package membership manages the catalog of membership packages.

Prices and durations are stored as given; billing rules live elsewhere. The
only cross-domain rule enforced here is that a package still referenced by
an active membership cannot be deleted.

# Architecture

  - Entity: Package (bun model, soft-deletable).
  - MembershipCounter: pgx port counting active memberships per package.
  - Service: use cases authorised by the package policy.
  - Handler: HTTP endpoints on top of the shared resource routes.
*/
package membership

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/taibuivan/backoffice/internal/platform/repository"
)

// # Status

// Status controls whether a package is offered.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// # Domain Entities

// Package is one purchasable membership tier.
type Package struct {
	bun.BaseModel `bun:"table:packages,alias:p"`

	ID           string    `bun:"id,pk" json:"id"`
	Name         string    `bun:"name,notnull" json:"name"`
	Slug         string    `bun:"slug,notnull" json:"slug"`
	Description  string    `bun:"description,notnull" json:"description"`
	PriceCents   int64     `bun:"price_cents,notnull" json:"price_cents"`
	DurationDays int       `bun:"duration_days,notnull" json:"duration_days"`
	Status       Status    `bun:"status,notnull" json:"status"`
	IsFeatured   bool      `bun:"is_featured,notnull" json:"is_featured"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
	DeletedAt    time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitzero"`
}

// PrimaryKey returns the package id.
func (p *Package) PrimaryKey() string { return p.ID }

// IsTrashed reports whether the package is soft-deleted.
func (p *Package) IsTrashed() bool { return !p.DeletedAt.IsZero() }

// Touch stamps the creation and update times.
func (p *Package) Touch(now time.Time, creating bool) {
	if creating {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// # Field Identifiers

const (
	FieldName         = "name"
	FieldSlug         = "slug"
	FieldDescription  = "description"
	FieldPriceCents   = "price_cents"
	FieldDurationDays = "duration_days"
	FieldStatus       = "status"
	FieldIsFeatured   = "is_featured"
)

// Descriptor exposes packages to the generic repository.
var Descriptor = repository.Descriptor[*Package]{
	Name:       "Package",
	Collection: "packages",
	New:        func() *Package { return &Package{} },
	Columns: []string{
		"id", FieldName, FieldSlug, FieldDescription, FieldPriceCents, FieldDurationDays,
		FieldStatus, FieldIsFeatured, "created_at", "updated_at", "deleted_at",
	},
	Searchable:    []string{FieldName, FieldSlug, FieldDescription},
	Immutable:     []string{"id", "created_at", "updated_at", "deleted_at"},
	DefaultSort:   "created_at",
	StatusColumn:  FieldStatus,
	ActiveValue:   string(StatusActive),
	InactiveValue: string(StatusInactive),
	UpdatedColumn: "updated_at",
}

// # Repository Contracts

// MembershipCounter reports how many live memberships reference a package.
type MembershipCounter interface {
	CountActive(context context.Context, packageID string) (int, error)
}
