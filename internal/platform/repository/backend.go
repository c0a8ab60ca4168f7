// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository

import "context"

// Backend is the storage contract behind a [Repository].
//
// Lookup and mutation methods return apperr NotFound when no row in the
// requested lifecycle state matches. Mutations only touch active rows unless
// stated otherwise.
type Backend[T Entity] interface {
	// FindOne returns the first row whose column equals value.
	FindOne(ctx context.Context, column string, value any, trashed Trashed) (T, error)

	// List returns the rows selected by criteria and the total ignoring Limit/Offset.
	List(ctx context.Context, criteria Criteria) ([]T, int, error)

	Insert(ctx context.Context, entity T) error

	// Patch sets columns on an active row.
	Patch(ctx context.Context, id string, fields map[string]any) error

	// SoftDelete marks an active row as trashed.
	SoftDelete(ctx context.Context, id string) error

	// Restore clears the marker of a trashed row.
	Restore(ctx context.Context, id string) error

	// HardDelete removes a row in any state.
	HardDelete(ctx context.Context, id string) error

	// Transaction runs fn against a transaction-bound backend. Returning an
	// error rolls every effect back.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Backend[T]) error) error

	// Savepoint runs fn so that its effects can be undone without aborting
	// the enclosing transaction. Outside a transaction it simply runs fn.
	Savepoint(ctx context.Context, fn func(ctx context.Context) error) error
}
