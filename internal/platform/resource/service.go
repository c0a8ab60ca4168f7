// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package resource

import (
	"context"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/validate"
)

// # Service Helpers

// Restore brings an entity back from the trash and returns it.
// An entity that is not trashed (or cannot be) yields Conflict.
func Restore[T repository.Entity](ctx context.Context, repo *repository.Repository[T], id string) (T, error) {
	var zero T

	restored, err := repo.Restore(ctx, id)
	if err != nil {
		return zero, err
	}
	if !restored {
		return zero, apperr.Conflict(repo.Descriptor().Name + " is not in the trash")
	}
	return repo.FindByID(ctx, id)
}

/*
Bulk validates a bulk payload and runs it through the repository.

Parameters:
  - ctx: context.Context
  - repo: *repository.Repository[T]
  - input: BulkInput
  - isolation: repository.Isolation (deployment setting)
  - authorize: per-item hook, may be nil

Returns:
  - *repository.BulkReport
  - error: ValidationError for a bad payload, or the abort cause
*/
func Bulk[T repository.Entity](
	ctx context.Context,
	repo *repository.Repository[T],
	input BulkInput,
	isolation repository.Isolation,
	authorize func(ctx context.Context, action repository.BulkAction, entity T) error,
) (*repository.BulkReport, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	action, err := repository.ParseBulkAction(input.Action)
	if err != nil {
		return nil, err
	}

	return repo.BulkAction(ctx, action, input.IDs, input.Data, repository.BulkOptions[T]{
		Isolation: isolation,
		Authorize: authorize,
	})
}
