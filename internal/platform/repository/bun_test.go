// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/postgres"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// requireDatabase connects to TEST_DATABASE_URL or skips the test.
func requireDatabase(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set - skipping postgres test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, dsn, slog.Default())
	if err != nil {
		t.Skipf("database not available: %v", err)
	}
	t.Cleanup(pool.Close)

	db := postgres.NewBunDB(pool)

	_, err = db.NewDropTable().Model((*widget)(nil)).IfExists().Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewCreateTable().Model((*widget)(nil)).Exec(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = db.NewDropTable().Model((*widget)(nil)).IfExists().Exec(context.Background())
	})
	return db
}

func TestBunBackend_Lifecycle(t *testing.T) {
	db := requireDatabase(t)
	ctx := context.Background()

	backend := repository.NewBunBackend(db, widgetDescriptor)
	repo := repository.New(backend, widgetDescriptor, pagination.DefaultPolicy)

	for _, item := range seedWidgets() {
		require.NoError(t, backend.Insert(ctx, item))
	}

	page, err := repo.Paginate(ctx, repository.Query{
		Filters:       repository.Filters{"status": "active", "name": "%a%"},
		SortField:     "name",
		SortDirection: "asc",
		PerPage:       10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(page.Items))

	page, err = repo.Paginate(ctx, repository.Query{Filters: repository.Filters{"id": []string{}}})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	require.NoError(t, repo.Delete(ctx, "b"))
	_, err = repo.FindByID(ctx, "b")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	trashed, err := repo.ListTrashed(ctx, repository.Query{PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(trashed.Items))

	restored, err := repo.Restore(ctx, "b")
	require.NoError(t, err)
	assert.True(t, restored)

	updated, err := repo.Update(ctx, "b", map[string]any{"name": "Bravo Two"})
	require.NoError(t, err)
	assert.Equal(t, "Bravo Two", updated.Name)
}

func TestBunBackend_BulkSavepoints(t *testing.T) {
	db := requireDatabase(t)
	ctx := context.Background()

	backend := repository.NewBunBackend(db, widgetDescriptor)
	repo := repository.New(backend, widgetDescriptor, pagination.DefaultPolicy)

	for _, item := range seedWidgets() {
		require.NoError(t, backend.Insert(ctx, item))
	}

	report, err := repo.BulkAction(ctx, repository.BulkDelete, []string{"a", "missing", "c"}, nil, repository.BulkOptions[*widget]{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)

	report, err = repo.BulkAction(ctx, repository.BulkDeactivate, []string{"e", "missing"}, nil,
		repository.BulkOptions[*widget]{Isolation: repository.AllOrNothing})
	require.NoError(t, err)
	assert.True(t, report.RolledBack)

	stored, err := repo.FindByID(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, "active", stored.Status)
}
