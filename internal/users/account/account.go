// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account manages the two disjoint kinds of principals: end users
(guard "user", table users) and back-office operators (guard "admin", table
admins).

Both kinds share one [Profile] layout and one generic [Service]; they never
share rows, roles or sessions.

# Architecture

  - Entities: Profile, User, Admin (bun models, soft-deletable).
  - Store: raw pgx lookups used by authentication (login, last-login stamp).
  - Service: management use cases, each authorised by the principal policy.
*/
package account

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
)

// # Status

// Status is the lifecycle state of a principal. Only active principals may hold a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates a caller-supplied status.
func ParseStatus(raw string) (Status, error) {
	switch status := Status(raw); status {
	case StatusActive, StatusInactive, StatusSuspended:
		return status, nil
	}
	return "", apperr.ValidationError("Invalid status",
		apperr.FieldError{Field: FieldStatus, Message: "Must be one of: active, inactive, suspended"})
}

// # Domain Entities

// Profile is the layout shared by every principal table.
type Profile struct {
	ID                 string     `bun:"id,pk" json:"id"`
	Name               string     `bun:"name,notnull" json:"name"`
	Username           string     `bun:"username,notnull" json:"username"`
	Email              string     `bun:"email,notnull" json:"email"`
	PasswordHash       string     `bun:"password_hash,notnull" json:"-"` // Never serialised.
	Status             Status     `bun:"status,notnull" json:"status"`
	LastLoginAt        *time.Time `bun:"last_login_at" json:"last_login_at"`
	LastLoginIP        string     `bun:"last_login_ip,nullzero" json:"last_login_ip,omitempty"`
	LastLoginUserAgent string     `bun:"last_login_user_agent,nullzero" json:"last_login_user_agent,omitempty"`
	CreatedAt          time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	DeletedAt          time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitzero"`
}

// PrimaryKey returns the principal id.
func (p *Profile) PrimaryKey() string { return p.ID }

// IsTrashed reports whether the principal is soft-deleted.
func (p *Profile) IsTrashed() bool { return !p.DeletedAt.IsZero() }

// Base returns the shared record of either principal kind.
func (p *Profile) Base() *Profile { return p }

// Touch stamps the creation and update times.
func (p *Profile) Touch(now time.Time, creating bool) {
	if creating {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Active reports whether the principal may authenticate.
func (p *Profile) Active() bool {
	return p.Status == StatusActive && !p.IsTrashed()
}

// User is an end user (guard "user").
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	Profile
}

// Admin is a back-office operator (guard "admin").
type Admin struct {
	bun.BaseModel `bun:"table:admins,alias:a"`
	Profile
}

// Principal is implemented by *User and *Admin.
type Principal interface {
	repository.SoftDeletable
	Base() *Profile
}

// # Field Identifiers

const (
	FieldName     = "name"
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldStatus   = "status"
	FieldRoles    = "roles"
)

// # Descriptors

var principalColumns = []string{
	"id", "name", "username", "email", "status",
	"last_login_at", "created_at", "updated_at", "deleted_at",
}

func descriptor[T Principal](name, collection string, factory func() T) repository.Descriptor[T] {
	return repository.Descriptor[T]{
		Name:          name,
		Collection:    collection,
		New:           factory,
		Columns:       principalColumns,
		Searchable:    []string{"name", "username", "email"},
		Immutable:     []string{"created_at", "updated_at", "deleted_at", "last_login_at"},
		DefaultSort:   "created_at",
		StatusColumn:  "status",
		ActiveValue:   string(StatusActive),
		InactiveValue: string(StatusInactive),
		UpdatedColumn: "updated_at",
	}
}

// UserDescriptor exposes end users to the generic repository.
var UserDescriptor = descriptor("User", "users", func() *User { return &User{} })

// AdminDescriptor exposes operators to the generic repository.
var AdminDescriptor = descriptor("Admin", "admins", func() *Admin { return &Admin{} })

// # Repository Contracts

// LoginRecord is the metadata stamped on a successful authentication.
type LoginRecord struct {
	At        time.Time
	IPAddress string
	UserAgent string
}

// Store is the persistence contract authentication relies on.
type Store interface {
	/*
		FindByLogin retrieves a live principal by email or username.

		Parameters:
		  - context: context.Context
		  - guard: rbac.Guard (selects the table)
		  - login: string (email or username, case-insensitive)

		Returns:
		  - *Profile: Loaded principal, whatever its status
		  - error: apperr.NotFound or storage failures
	*/
	FindByLogin(context context.Context, guard rbac.Guard, login string) (*Profile, error)

	// FindByID retrieves a live principal by identifier.
	FindByID(context context.Context, guard rbac.Guard, id string) (*Profile, error)

	// RecordLogin stamps the last-login metadata.
	RecordLogin(context context.Context, guard rbac.Guard, id string, login LoginRecord) error

	// UpdatePassword replaces the credential hash.
	UpdatePassword(context context.Context, guard rbac.Guard, id, passwordHash string) error
}
