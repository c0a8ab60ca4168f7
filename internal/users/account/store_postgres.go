// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/database/schema"
)

// # Repository Implementations

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new Postgres implementation of [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// tableFor selects the principal table of a guard.
func tableFor(guard rbac.Guard) schema.PrincipalTable {
	if guard == rbac.GuardAdmin {
		return schema.Admins
	}
	return schema.Users
}

// selectProfile builds the shared SELECT over a principal table.
func selectProfile(table schema.PrincipalTable, where string) string {
	return fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s,
		       COALESCE(%s, ''), COALESCE(%s, ''), %s, %s
		FROM %s
		WHERE %s AND %s IS NULL`,
		table.ID, table.Name, table.Username, table.Email, table.Password, table.Status, table.LastLoginAt,
		table.LastLoginIP, table.LastLoginUserAgent, table.CreatedAt, table.UpdatedAt,
		table.Table,
		where, table.DeletedAt,
	)
}

func scanProfile(row pgx.Row) (*Profile, error) {
	profile := &Profile{}
	err := row.Scan(
		&profile.ID,
		&profile.Name,
		&profile.Username,
		&profile.Email,
		&profile.PasswordHash,
		&profile.Status,
		&profile.LastLoginAt,
		&profile.LastLoginIP,
		&profile.LastLoginUserAgent,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	return profile, err
}

/*
FindByLogin retrieves a principal by email or username.

Description: Matching is case-insensitive on both columns. Soft-deleted
rows are invisible.

Parameters:
  - context: context.Context
  - guard: rbac.Guard
  - login: string

Returns:
  - *Profile: Hydrated principal
  - error: apperr.NotFound or database execution failure
*/
func (repository *PostgresStore) FindByLogin(context context.Context, guard rbac.Guard, login string) (*Profile, error) {
	table := tableFor(guard)
	query := selectProfile(table, fmt.Sprintf("(LOWER(%s) = LOWER($1) OR LOWER(%s) = LOWER($1))", table.Email, table.Username))

	profile, err := scanProfile(repository.pool.QueryRow(context, query, login))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_find_by_login_failed: %w", err)
	}

	return profile, nil
}

// FindByID retrieves a principal by identifier.
func (repository *PostgresStore) FindByID(context context.Context, guard rbac.Guard, id string) (*Profile, error) {
	table := tableFor(guard)
	query := selectProfile(table, fmt.Sprintf("%s = $1", table.ID))

	profile, err := scanProfile(repository.pool.QueryRow(context, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account")
		}
		return nil, fmt.Errorf("postgres_account_find_by_id_failed: %w", err)
	}

	return profile, nil
}

/*
RecordLogin stamps the last-login time, address and client of a principal.

Parameters:
  - context: context.Context
  - guard: rbac.Guard
  - id: string
  - login: LoginRecord

Returns:
  - error: Update failures
*/
func (repository *PostgresStore) RecordLogin(context context.Context, guard rbac.Guard, id string, login LoginRecord) error {
	table := tableFor(guard)
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = NULLIF($3, ''), %s = NULLIF($4, '')
		WHERE %s = $1`,
		table.Table,
		table.LastLoginAt, table.LastLoginIP, table.LastLoginUserAgent,
		table.ID,
	)

	if _, err := repository.pool.Exec(context, query, id, login.At, login.IPAddress, login.UserAgent); err != nil {
		return fmt.Errorf("postgres_account_record_login_failed: %w", err)
	}

	return nil
}

// UpdatePassword replaces the credential hash of a live principal.
func (repository *PostgresStore) UpdatePassword(context context.Context, guard rbac.Guard, id, passwordHash string) error {
	table := tableFor(guard)
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1 AND %s IS NULL`,
		table.Table, table.Password, table.UpdatedAt, table.ID, table.DeletedAt)

	tag, err := repository.pool.Exec(context, query, id, passwordHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_update_password_failed: %w", err)
	}

	// If nothing was updated, the principal is gone
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Account")
	}

	return nil
}
