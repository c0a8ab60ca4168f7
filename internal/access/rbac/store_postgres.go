// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package rbac

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/database/schema"
	"github.com/taibuivan/backoffice/internal/platform/postgres"
	"github.com/taibuivan/backoffice/pkg/uuid"
)

// PostgresStore implements [Store] using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// # Grants

/*
Grants resolves the roles and the effective permission set of a principal.

Description: Two round trips. Roles come from principal_roles; permissions are
the union of role permissions and direct grants, restricted to the guard on
every join so that nothing leaks across realms.

Parameters:
  - context: context.Context
  - guard: Guard
  - principalID: string

Returns:
  - Grants: Sorted, de-duplicated snapshot
  - error: Database execution failures
*/
func (repository *PostgresStore) Grants(context context.Context, guard Guard, principalID string) (Grants, error) {
	rolesQuery := fmt.Sprintf(`
		SELECT r.%s, r.%s
		FROM %s pr
		JOIN %s r ON r.%s = pr.%s AND r.%s = pr.%s
		WHERE pr.%s = $1 AND pr.%s = $2`,
		schema.Role.Name, schema.Role.Level,
		schema.PrincipalRole.Table,
		schema.Role.Table, schema.Role.ID, schema.PrincipalRole.RoleID, schema.Role.Guard, schema.PrincipalRole.Guard,
		schema.PrincipalRole.Guard, schema.PrincipalRole.PrincipalID,
	)

	rows, err := repository.pool.Query(context, rolesQuery, guard, principalID)
	if err != nil {
		return Grants{}, fmt.Errorf("postgres_rbac_grants_roles_failed: %w", err)
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RoleGrant, error) {
		var grant RoleGrant
		err := row.Scan(&grant.Name, &grant.Level)
		return grant, err
	})
	if err != nil {
		return Grants{}, fmt.Errorf("postgres_rbac_grants_roles_scan_failed: %w", err)
	}

	permissionsQuery := fmt.Sprintf(`
		SELECT DISTINCT p.%[1]s
		FROM %[2]s p
		WHERE p.%[3]s = $1 AND (
			p.%[4]s IN (
				SELECT rp.%[5]s
				FROM %[6]s rp
				JOIN %[7]s pr ON pr.%[8]s = rp.%[9]s
				WHERE pr.%[10]s = $1 AND pr.%[11]s = $2
			)
			OR p.%[4]s IN (
				SELECT pp.%[12]s
				FROM %[13]s pp
				WHERE pp.%[14]s = $1 AND pp.%[15]s = $2
			)
		)
		ORDER BY p.%[1]s`,
		schema.Permission.Name, schema.Permission.Table, schema.Permission.Guard, schema.Permission.ID,
		schema.RolePermission.PermissionID, schema.RolePermission.Table,
		schema.PrincipalRole.Table, schema.PrincipalRole.RoleID, schema.RolePermission.RoleID,
		schema.PrincipalRole.Guard, schema.PrincipalRole.PrincipalID,
		schema.PrincipalPermission.PermissionID, schema.PrincipalPermission.Table,
		schema.PrincipalPermission.Guard, schema.PrincipalPermission.PrincipalID,
	)

	rows, err = repository.pool.Query(context, permissionsQuery, guard, principalID)
	if err != nil {
		return Grants{}, fmt.Errorf("postgres_rbac_grants_permissions_failed: %w", err)
	}
	permissions, err := pgx.CollectRows(rows, pgx.RowTo[PermissionName])
	if err != nil {
		return Grants{}, fmt.Errorf("postgres_rbac_grants_permissions_scan_failed: %w", err)
	}

	return NewGrants(guard, roles, permissions), nil
}

// RolePermissions lists the permission names granted to a role.
func (repository *PostgresStore) RolePermissions(context context.Context, roleID string) ([]PermissionName, error) {
	query := fmt.Sprintf(`
		SELECT p.%s
		FROM %s rp
		JOIN %s p ON p.%s = rp.%s
		WHERE rp.%s = $1
		ORDER BY p.%s`,
		schema.Permission.Name,
		schema.RolePermission.Table,
		schema.Permission.Table, schema.Permission.ID, schema.RolePermission.PermissionID,
		schema.RolePermission.RoleID,
		schema.Permission.Name,
	)

	rows, err := repository.pool.Query(context, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("postgres_rbac_role_permissions_failed: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[PermissionName])
	if err != nil {
		return nil, fmt.Errorf("postgres_rbac_role_permissions_scan_failed: %w", err)
	}
	return names, nil
}

// # Reference Counts

// CountRoleHolders counts principals holding a role.
func (repository *PostgresStore) CountRoleHolders(context context.Context, roleID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.PrincipalRole.Table, schema.PrincipalRole.RoleID)

	var count int
	if err := repository.pool.QueryRow(context, query, roleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_rbac_count_role_holders_failed: %w", err)
	}
	return count, nil
}

// CountPermissionRoles counts roles granting a permission.
func (repository *PostgresStore) CountPermissionRoles(context context.Context, permissionID string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.RolePermission.Table, schema.RolePermission.PermissionID)

	var count int
	if err := repository.pool.QueryRow(context, query, permissionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres_rbac_count_permission_roles_failed: %w", err)
	}
	return count, nil
}

// # Assignments

/*
SyncRolePermissions replaces the permission set of a role in one transaction.

Parameters:
  - context: context.Context
  - role: *Role
  - names: []PermissionName

Returns:
  - error: ValidationError when a name has no row in the role's guard
*/
func (repository *PostgresStore) SyncRolePermissions(context context.Context, role *Role, names []PermissionName) error {
	return postgres.WithTx(context, repository.pool, func(tx pgx.Tx) error {
		ids, err := permissionIDs(context, tx, role.Guard, names)
		if err != nil {
			return err
		}

		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
			schema.RolePermission.Table, schema.RolePermission.RoleID)
		if _, err := tx.Exec(context, deleteQuery, role.ID); err != nil {
			return fmt.Errorf("postgres_rbac_sync_clear_failed: %w", err)
		}

		insertQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s)
			SELECT $1, unnest($2::text[])::uuid`,
			schema.RolePermission.Table, schema.RolePermission.RoleID, schema.RolePermission.PermissionID)
		if _, err := tx.Exec(context, insertQuery, role.ID, ids); err != nil {
			return fmt.Errorf("postgres_rbac_sync_insert_failed: %w", err)
		}
		return nil
	})
}

// AssignRoles replaces the role set of a principal in a guard.
func (repository *PostgresStore) AssignRoles(context context.Context, guard Guard, principalID string, roleIDs []string) error {
	return postgres.WithTx(context, repository.pool, func(tx pgx.Tx) error {
		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
			schema.PrincipalRole.Table, schema.PrincipalRole.Guard, schema.PrincipalRole.PrincipalID)
		if _, err := tx.Exec(context, deleteQuery, guard, principalID); err != nil {
			return fmt.Errorf("postgres_rbac_assign_clear_failed: %w", err)
		}

		insertQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s)
			SELECT $1, $2, unnest($3::text[])::uuid`,
			schema.PrincipalRole.Table, schema.PrincipalRole.Guard,
			schema.PrincipalRole.PrincipalID, schema.PrincipalRole.RoleID)
		if _, err := tx.Exec(context, insertQuery, guard, principalID, roleIDs); err != nil {
			return fmt.Errorf("postgres_rbac_assign_insert_failed: %w", err)
		}
		return nil
	})
}

// GrantPermissions replaces the direct permissions of a principal in a guard.
func (repository *PostgresStore) GrantPermissions(context context.Context, guard Guard, principalID string, names []PermissionName) error {
	return postgres.WithTx(context, repository.pool, func(tx pgx.Tx) error {
		ids, err := permissionIDs(context, tx, guard, names)
		if err != nil {
			return err
		}

		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
			schema.PrincipalPermission.Table, schema.PrincipalPermission.Guard, schema.PrincipalPermission.PrincipalID)
		if _, err := tx.Exec(context, deleteQuery, guard, principalID); err != nil {
			return fmt.Errorf("postgres_rbac_grant_clear_failed: %w", err)
		}

		insertQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s)
			SELECT $1, $2, unnest($3::text[])::uuid`,
			schema.PrincipalPermission.Table, schema.PrincipalPermission.Guard,
			schema.PrincipalPermission.PrincipalID, schema.PrincipalPermission.PermissionID)
		if _, err := tx.Exec(context, insertQuery, guard, principalID, ids); err != nil {
			return fmt.Errorf("postgres_rbac_grant_insert_failed: %w", err)
		}
		return nil
	})
}

// permissionIDs maps names to row ids within a guard, rejecting unknown names.
func permissionIDs(context context.Context, tx pgx.Tx, guard Guard, names []PermissionName) ([]string, error) {
	if len(names) == 0 {
		return []string{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, %s FROM %s
		WHERE %s = $1 AND %s = ANY($2::text[])`,
		schema.Permission.ID, schema.Permission.Name, schema.Permission.Table,
		schema.Permission.Guard, schema.Permission.Name)

	raw := make([]string, len(names))
	for i, name := range names {
		raw[i] = string(name)
	}

	rows, err := tx.Query(context, query, guard, raw)
	if err != nil {
		return nil, fmt.Errorf("postgres_rbac_permission_ids_failed: %w", err)
	}

	found := make(map[PermissionName]string, len(names))
	for rows.Next() {
		var id string
		var name PermissionName
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres_rbac_permission_ids_scan_failed: %w", err)
		}
		found[name] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_rbac_permission_ids_failed: %w", err)
	}

	ids := make([]string, 0, len(names))
	var missing []apperr.FieldError
	for _, name := range names {
		id, ok := found[name]
		if !ok {
			missing = append(missing, apperr.FieldError{Field: "permissions", Message: fmt.Sprintf("%s does not exist for guard %s", name, guard)})
			continue
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.ValidationError("Unknown permissions", missing...)
	}
	return ids, nil
}

// # Catalog

/*
UpsertCatalog inserts every registry permission and role that is missing.
A role's default grants are written only when the role itself is created, so
operator edits survive restarts.

Parameters:
  - context: context.Context
  - registry: *Registry

Returns:
  - error: Database execution failures
*/
func (repository *PostgresStore) UpsertCatalog(context context.Context, registry *Registry) error {
	now := time.Now()

	permissionQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, '', $4)
		ON CONFLICT (%s, %s) DO NOTHING`,
		schema.Permission.Table, schema.Permission.ID, schema.Permission.Guard, schema.Permission.Name,
		schema.Permission.Description, schema.Permission.CreatedAt,
		schema.Permission.Guard, schema.Permission.Name)

	roleQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, '', $5, $5)
		ON CONFLICT (%s, %s) DO NOTHING
		RETURNING %s`,
		schema.Role.Table, schema.Role.ID, schema.Role.Guard, schema.Role.Name, schema.Role.Level,
		schema.Role.Description, schema.Role.CreatedAt, schema.Role.UpdatedAt,
		schema.Role.Guard, schema.Role.Name, schema.Role.ID)

	grantQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		SELECT $1, p.%s
		FROM %s p
		WHERE p.%s = $2 AND p.%s = ANY($3::text[])
		ON CONFLICT DO NOTHING`,
		schema.RolePermission.Table, schema.RolePermission.RoleID, schema.RolePermission.PermissionID,
		schema.Permission.ID, schema.Permission.Table,
		schema.Permission.Guard, schema.Permission.Name)

	return postgres.WithTx(context, repository.pool, func(tx pgx.Tx) error {
		for _, guard := range Guards() {
			for _, name := range registry.Permissions(guard) {
				if _, err := tx.Exec(context, permissionQuery, uuid.New(), guard, name, now); err != nil {
					return fmt.Errorf("postgres_rbac_upsert_permission_failed: %w", err)
				}
			}

			for _, definition := range registry.Roles(guard) {
				// Default grants are only seeded with the role itself.
				var roleID string
				err := tx.QueryRow(context, roleQuery, uuid.New(), guard, definition.Key.Name, definition.Level, now).Scan(&roleID)
				if errors.Is(err, pgx.ErrNoRows) {
					continue
				}
				if err != nil {
					return fmt.Errorf("postgres_rbac_upsert_role_failed: %w", err)
				}

				names := make([]string, len(definition.Permissions))
				for i, permission := range definition.Permissions {
					names[i] = string(permission)
				}
				if _, err := tx.Exec(context, grantQuery, roleID, guard, names); err != nil {
					return fmt.Errorf("postgres_rbac_upsert_grants_failed: %w", err)
				}
			}
		}
		return nil
	})
}
