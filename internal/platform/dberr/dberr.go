// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
)

// Wrap classifies a storage error into an [apperr.AppError].
//
//   - no rows (pgx or database/sql) becomes NotFound(resource)
//   - unique and foreign-key violations become Conflict
//   - everything else becomes Internal, keeping action in the cause chain
//
// Errors that are already [*apperr.AppError] pass through unchanged.
func Wrap(err error, resource, action string) error {
	if err == nil {
		return nil
	}

	if apperr.IsAppError(err) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(resource)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(resource + " already exists").WithCause(err)
		case pgerrcode.ForeignKeyViolation:
			return apperr.Conflict(resource + " is referenced by other records").WithCause(err)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation, pgerrcode.InvalidTextRepresentation:
			return apperr.ValidationError("Invalid " + resource + " data").WithCause(err)
		}
	}

	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
