// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/ctxutil"
)

// # Actions

// BulkAction is one operation applied to every identifier of a batch.
type BulkAction string

const (
	BulkDelete     BulkAction = "delete"
	BulkUpdate     BulkAction = "update"
	BulkActivate   BulkAction = "activate"
	BulkDeactivate BulkAction = "deactivate"
)

// ParseBulkAction validates a caller-supplied action name.
func ParseBulkAction(raw string) (BulkAction, error) {
	switch action := BulkAction(raw); action {
	case BulkDelete, BulkUpdate, BulkActivate, BulkDeactivate:
		return action, nil
	}
	return "", apperr.ValidationError("Invalid bulk action",
		apperr.FieldError{Field: "action", Message: "Must be one of: delete, update, activate, deactivate"})
}

// # Isolation Policy

// Isolation decides what a per-item failure does to the rest of the batch.
//
// The batch always runs in one transaction. Unexpected failures (anything
// that is not a 4xx [apperr.AppError]) abort and roll back under both policies.
type Isolation int

const (
	// IsolateExpected records expected per-item failures (not found,
	// forbidden, conflict, validation) in the report and keeps going; each
	// item runs under its own savepoint so a failed item leaves no trace.
	IsolateExpected Isolation = iota

	// AllOrNothing rolls the whole batch back on the first failed item.
	AllOrNothing
)

// ParseIsolation maps configuration values to a policy.
func ParseIsolation(raw string) (Isolation, error) {
	switch raw {
	case "", "isolate_expected":
		return IsolateExpected, nil
	case "all_or_nothing":
		return AllOrNothing, nil
	}
	return IsolateExpected, fmt.Errorf("repository: unknown bulk isolation %q", raw)
}

func (i Isolation) String() string {
	if i == AllOrNothing {
		return "all_or_nothing"
	}
	return "isolate_expected"
}

// BulkOptions tune one batch.
type BulkOptions[T Entity] struct {
	Isolation Isolation

	// Authorize runs before each item is touched. Returning an expected error
	// marks only that item as failed.
	Authorize func(ctx context.Context, action BulkAction, entity T) error
}

// # Report

// Per-item outcome codes that are not apperr codes.
const (
	CodeRolledBack = "ROLLED_BACK"
	CodeSkipped    = "SKIPPED"
)

// BulkItemResult is the outcome for one identifier.
type BulkItemResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// BulkReport lists one result per requested identifier, in request order.
type BulkReport struct {
	Action     BulkAction       `json:"action"`
	Isolation  string           `json:"isolation"`
	Total      int              `json:"total"`
	Succeeded  int              `json:"succeeded"`
	Failed     int              `json:"failed"`
	RolledBack bool             `json:"rolled_back"`
	Results    []BulkItemResult `json:"results"`
}

func (report *BulkReport) record(id string, err error) {
	result := BulkItemResult{ID: id, Success: err == nil}
	if err != nil {
		result.Reason = err.Error()
		result.Code = apperr.CodeInternal
		if ae := apperr.As(err); ae != nil {
			result.Code = ae.Code
		}
	}
	report.Results = append(report.Results, result)
}

func (report *BulkReport) tally() {
	report.Total = len(report.Results)
	report.Succeeded, report.Failed = 0, 0
	for _, result := range report.Results {
		if result.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
}

// errBatchAborted unwinds the transaction for an all-or-nothing failure.
var errBatchAborted = errors.New("repository: bulk batch aborted")

// # Execution

// BulkAction applies action to every id inside one transaction.
//
// data is the update payload for [BulkUpdate] and ignored otherwise. Under
// [AllOrNothing] a failed item yields a report with RolledBack set, the
// failing item's reason, earlier items marked ROLLED_BACK and later ones
// SKIPPED. An unexpected failure returns an error and no report.
func (repository *Repository[T]) BulkAction(ctx context.Context, action BulkAction, ids []string, data map[string]any, options BulkOptions[T]) (*BulkReport, error) {
	if len(ids) == 0 {
		return nil, apperr.ValidationError("No identifiers given",
			apperr.FieldError{Field: "ids", Message: "At least one identifier is required"})
	}

	patch, err := repository.bulkPatch(action, data)
	if err != nil {
		return nil, err
	}

	report := &BulkReport{Action: action, Isolation: options.Isolation.String()}

	err = repository.backend.Transaction(ctx, func(ctx context.Context, tx Backend[T]) error {
		report.Results = report.Results[:0]

		for index, id := range ids {
			itemErr := tx.Savepoint(ctx, func(ctx context.Context) error {
				return repository.applyOne(ctx, tx, action, id, patch, options)
			})

			if itemErr == nil {
				report.record(id, nil)
				continue
			}

			if !apperr.IsExpected(itemErr) {
				return fmt.Errorf("bulk %s on %s %s: %w", action, repository.descriptor.Name, id, itemErr)
			}

			report.record(id, itemErr)
			if options.Isolation == AllOrNothing {
				report.abandon(index, ids)
				return errBatchAborted
			}
		}
		return nil
	})

	logger := ctxutil.GetLogger(ctx)
	switch {
	case errors.Is(err, errBatchAborted):
		report.RolledBack = true
	case err != nil:
		logger.ErrorContext(ctx, "bulk_action_aborted",
			slog.String("resource", repository.descriptor.Collection),
			slog.String("action", string(action)),
			slog.Int("requested", len(ids)),
			slog.Any("error", err),
		)
		return nil, err
	}

	report.tally()
	logger.InfoContext(ctx, "bulk_action_completed",
		slog.String("resource", repository.descriptor.Collection),
		slog.String("action", string(action)),
		slog.String("isolation", report.Isolation),
		slog.Int("succeeded", report.Succeeded),
		slog.Int("failed", report.Failed),
		slog.Bool("rolled_back", report.RolledBack),
	)
	return report, nil
}

// abandon rewrites the report after an all-or-nothing failure at index.
func (report *BulkReport) abandon(index int, ids []string) {
	for i := 0; i < index; i++ {
		report.Results[i] = BulkItemResult{ID: ids[i], Code: CodeRolledBack, Reason: "Rolled back with the batch"}
	}
	for _, id := range ids[index+1:] {
		report.Results = append(report.Results, BulkItemResult{ID: id, Code: CodeSkipped, Reason: "Not attempted"})
	}
}

// bulkPatch precomputes the column changes for update-like actions.
func (repository *Repository[T]) bulkPatch(action BulkAction, data map[string]any) (map[string]any, error) {
	descriptor := repository.descriptor

	switch action {
	case BulkDelete:
		return nil, nil
	case BulkUpdate:
		return repository.patch(data)
	case BulkActivate, BulkDeactivate:
		if descriptor.StatusColumn == "" {
			return nil, apperr.ValidationError(descriptor.Name + " has no status to toggle")
		}
		value := descriptor.ActiveValue
		if action == BulkDeactivate {
			value = descriptor.InactiveValue
		}
		patch := map[string]any{descriptor.StatusColumn: value}
		if descriptor.UpdatedColumn != "" {
			patch[descriptor.UpdatedColumn] = repository.clock()
		}
		return patch, nil
	}

	_, err := ParseBulkAction(string(action))
	return nil, err
}

func (repository *Repository[T]) applyOne(ctx context.Context, tx Backend[T], action BulkAction, id string, patch map[string]any, options BulkOptions[T]) error {
	entity, err := tx.FindOne(ctx, "id", id, ExcludeTrashed)
	if err != nil {
		return err
	}

	if options.Authorize != nil {
		if err := options.Authorize(ctx, action, entity); err != nil {
			return err
		}
	}

	if action == BulkDelete {
		return repository.delete(ctx, tx, id)
	}
	return tx.Patch(ctx, id, patch)
}
