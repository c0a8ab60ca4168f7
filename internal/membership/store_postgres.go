// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package membership

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/backoffice/internal/platform/database/schema"
)

// PostgresCounter implements [MembershipCounter] using pgx.
type PostgresCounter struct {
	pool *pgxpool.Pool
}

// NewPostgresCounter creates a new PostgreSQL implementation of [MembershipCounter].
func NewPostgresCounter(pool *pgxpool.Pool) *PostgresCounter {
	return &PostgresCounter{pool: pool}
}

/*
CountActive counts the active memberships pointing at a package.

Parameters:
  - context: context.Context
  - packageID: string

Returns:
  - int: Number of active memberships
  - error: Database execution failures
*/
func (repository *PostgresCounter) CountActive(context context.Context, packageID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		WHERE %s = $1 AND %s = $2`,
		schema.Membership.Table,
		schema.Membership.PackageID, schema.Membership.Status,
	)

	var count int
	if err := repository.pool.QueryRow(context, query, packageID, schema.MembershipStatusActive).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_count_memberships_failed: %w", err)
	}
	return count, nil
}
