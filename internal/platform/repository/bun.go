// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/uptrace/bun"

	"github.com/taibuivan/backoffice/internal/platform/dberr"
)

// BunBackend stores entities through the bun query builder.
//
// T must be a pointer to a bun model whose column names match the descriptor
// columns. Soft-deletable models carry a `bun:",soft_delete,nullzero"` field.
type BunBackend[T Entity] struct {
	db          bun.IDB
	descriptor  Descriptor[T]
	softDeletes bool

	// inTx is set on transaction-bound copies.
	inTx       bool
	savepoints *atomic.Int64
}

// NewBunBackend binds a bun handle (a *bun.DB or a bun.Tx) to a resource.
func NewBunBackend[T Entity](db bun.IDB, descriptor Descriptor[T]) *BunBackend[T] {
	var zero T
	_, softDeletes := any(zero).(SoftDeletable)

	return &BunBackend[T]{
		db:          db,
		descriptor:  descriptor,
		softDeletes: softDeletes,
		savepoints:  &atomic.Int64{},
	}
}

func (backend *BunBackend[T]) wrap(err error, action string) error {
	return dberr.Wrap(err, backend.descriptor.Name, backend.descriptor.Collection+"_"+action)
}

// # Reads

// FindOne implements [Backend].
func (backend *BunBackend[T]) FindOne(ctx context.Context, column string, value any, trashed Trashed) (T, error) {
	entity := backend.descriptor.New()

	query := backend.db.NewSelect().
		Model(entity).
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1)
	query = backend.scopeSelect(query, trashed)

	if err := query.Scan(ctx); err != nil {
		var zero T
		return zero, backend.wrap(err, "find")
	}
	return entity, nil
}

// List implements [Backend].
func (backend *BunBackend[T]) List(ctx context.Context, criteria Criteria) ([]T, int, error) {
	items := make([]T, 0)

	query := backend.db.NewSelect().Model(&items)
	query = backend.scopeSelect(query, criteria.Trashed)

	for _, condition := range criteria.Conditions {
		query = applyCondition(query, condition)
	}

	if criteria.Search.Active() {
		pattern := "%" + criteria.Search.Term + "%"
		query = query.WhereGroup(" AND ", func(group *bun.SelectQuery) *bun.SelectQuery {
			for _, field := range criteria.Search.Fields {
				group = group.WhereOr("?TableAlias.?::text ILIKE ?", bun.Ident(field), pattern)
			}
			return group
		})
	}

	direction := strings.ToUpper(string(NormalizeDirection(string(criteria.Direction))))
	query = query.OrderExpr("?TableAlias.? "+direction, bun.Ident(criteria.SortField))
	if criteria.SortField != "id" {
		query = query.OrderExpr("?TableAlias.id " + direction)
	}

	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit).Offset(criteria.Offset)
	}

	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, backend.wrap(err, "list")
	}
	return items, total, nil
}

func (backend *BunBackend[T]) scopeSelect(query *bun.SelectQuery, trashed Trashed) *bun.SelectQuery {
	if !backend.softDeletes {
		return query
	}
	switch trashed {
	case WithTrashed:
		return query.WhereAllWithDeleted()
	case OnlyTrashed:
		return query.WhereDeleted()
	default:
		return query
	}
}

func applyCondition(query *bun.SelectQuery, condition Condition) *bun.SelectQuery {
	column := bun.Ident(condition.Field)

	switch condition.Operator {
	case OpNull:
		return query.Where("?TableAlias.? IS NULL", column)
	case OpLike:
		return query.Where("?TableAlias.?::text ILIKE ?", column, condition.Value)
	case OpIn:
		if len(condition.Values) == 0 {
			return query.Where("1 = 0")
		}
		return query.Where("?TableAlias.? IN (?)", column, bun.In(condition.Values))
	default:
		return query.Where("?TableAlias.? = ?", column, condition.Value)
	}
}

// # Writes

// Insert implements [Backend].
func (backend *BunBackend[T]) Insert(ctx context.Context, entity T) error {
	if _, err := backend.db.NewInsert().Model(entity).Exec(ctx); err != nil {
		return backend.wrap(err, "insert")
	}
	return nil
}

// Patch implements [Backend].
func (backend *BunBackend[T]) Patch(ctx context.Context, id string, fields map[string]any) error {
	query := backend.db.NewUpdate().
		Model(backend.descriptor.New()).
		Where("?TableAlias.id = ?", id)

	for column, value := range fields {
		query = query.Set("? = ?", bun.Ident(column), value)
	}

	result, err := query.Exec(ctx)
	return backend.affected(result, err, "patch")
}

// SoftDelete implements [Backend].
func (backend *BunBackend[T]) SoftDelete(ctx context.Context, id string) error {
	if !backend.softDeletes {
		return backend.HardDelete(ctx, id)
	}

	result, err := backend.db.NewDelete().
		Model(backend.descriptor.New()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return backend.affected(result, err, "soft_delete")
}

// Restore implements [Backend].
func (backend *BunBackend[T]) Restore(ctx context.Context, id string) error {
	if !backend.softDeletes {
		return backend.descriptor.NotFound()
	}

	result, err := backend.db.NewUpdate().
		Model(backend.descriptor.New()).
		Set("deleted_at = NULL").
		Where("?TableAlias.id = ?", id).
		WhereDeleted().
		Exec(ctx)
	return backend.affected(result, err, "restore")
}

// HardDelete implements [Backend].
func (backend *BunBackend[T]) HardDelete(ctx context.Context, id string) error {
	query := backend.db.NewDelete().
		Model(backend.descriptor.New()).
		Where("?TableAlias.id = ?", id)
	if backend.softDeletes {
		query = query.WhereAllWithDeleted().ForceDelete()
	}

	result, err := query.Exec(ctx)
	return backend.affected(result, err, "force_delete")
}

func (backend *BunBackend[T]) affected(result sql.Result, err error, action string) error {
	if err != nil {
		return backend.wrap(err, action)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return backend.wrap(err, action)
	}
	if rows == 0 {
		return backend.descriptor.NotFound()
	}
	return nil
}

// # Transactions

// Transaction implements [Backend]. Nested calls join the outer transaction.
func (backend *BunBackend[T]) Transaction(ctx context.Context, fn func(ctx context.Context, tx Backend[T]) error) error {
	if backend.inTx {
		return fn(ctx, backend)
	}

	return backend.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead}, func(ctx context.Context, tx bun.Tx) error {
		bound := *backend
		bound.db = tx
		bound.inTx = true
		return fn(ctx, &bound)
	})
}

// Savepoint implements [Backend].
func (backend *BunBackend[T]) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	if !backend.inTx {
		return fn(ctx)
	}

	name := fmt.Sprintf("item_%d", backend.savepoints.Add(1))
	if _, err := backend.db.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return backend.wrap(err, "savepoint")
	}

	if err := fn(ctx); err != nil {
		if _, rollbackErr := backend.db.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rollbackErr != nil {
			return backend.wrap(fmt.Errorf("%w (rollback: %v)", err, rollbackErr), "savepoint_rollback")
		}
		return err
	}

	if _, err := backend.db.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return backend.wrap(err, "savepoint_release")
	}
	return nil
}
