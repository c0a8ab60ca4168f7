// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/repository/repositorytest"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// # Fixtures

type widget struct {
	bun.BaseModel `bun:"table:widgets,alias:w"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name" json:"name"`
	Status    string    `bun:"status" json:"status"`
	Price     int64     `bun:"price" json:"price"`
	Tags      []string  `bun:"tags,array" json:"tags"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at" json:"updated_at"`
	DeletedAt time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitzero"`
}

func (w *widget) PrimaryKey() string { return w.ID }
func (w *widget) IsTrashed() bool    { return !w.DeletedAt.IsZero() }
func (w *widget) Touch(now time.Time, creating bool) {
	if creating {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
}

var widgetDescriptor = repository.Descriptor[*widget]{
	Name:          "Widget",
	Collection:    "widgets",
	New:           func() *widget { return &widget{} },
	Columns:       []string{"id", "name", "status", "price", "tags", "created_at", "updated_at"},
	Searchable:    []string{"name"},
	Immutable:     []string{"created_at"},
	StatusColumn:  "status",
	ActiveValue:   "active",
	InactiveValue: "inactive",
	UpdatedColumn: "updated_at",
}

// label has no soft-delete capability.
type label struct {
	bun.BaseModel `bun:"table:labels,alias:l"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name" json:"name"`
	CreatedAt time.Time `bun:"created_at" json:"created_at"`
}

func (l *label) PrimaryKey() string { return l.ID }

var labelDescriptor = repository.Descriptor[*label]{
	Name:       "Label",
	Collection: "labels",
	New:        func() *label { return &label{} },
	Columns:    []string{"id", "name", "created_at"},
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func seedWidgets() []*widget {
	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}
	widgets := make([]*widget, 0, len(names))
	for i, name := range names {
		status := "active"
		if i%2 == 1 {
			status = "inactive"
		}
		widgets = append(widgets, &widget{
			ID:        string(rune('a' + i)),
			Name:      name,
			Status:    status,
			Price:     int64(100 * (i + 1)),
			Tags:      []string{"t" + name},
			CreatedAt: epoch.Add(time.Duration(i) * time.Hour),
		})
	}
	return widgets
}

func newWidgets(t *testing.T) (*repository.Repository[*widget], *repositorytest.MemoryBackend[*widget]) {
	t.Helper()
	backend := repositorytest.NewMemoryBackend(widgetDescriptor).Seed(seedWidgets()...)
	return repository.New(backend, widgetDescriptor, pagination.DefaultPolicy), backend
}

func ids(items []*widget) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

// # Lookups

func TestRepository_FindByID(t *testing.T) {
	repo, _ := newWidgets(t)
	ctx := context.Background()

	found, err := repo.FindByID(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "Charlie", found.Name)

	_, err = repo.FindByID(ctx, "zz")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestRepository_FindByField_RejectsUnknownColumn(t *testing.T) {
	repo, _ := newWidgets(t)

	found, err := repo.FindByField(context.Background(), "name", "Delta")
	require.NoError(t, err)
	assert.Equal(t, "d", found.ID)

	_, err = repo.FindByField(context.Background(), "password", "x")
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

// # Listings

func TestRepository_Paginate_Filters(t *testing.T) {
	repo, _ := newWidgets(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		filters repository.Filters
		want    []string
	}{
		{"exact scalar", repository.Filters{"status": "inactive"}, []string{"d", "b"}},
		{"list means membership", repository.Filters{"id": []string{"a", "e"}}, []string{"e", "a"}},
		{"empty list matches nothing", repository.Filters{"id": []string{}}, []string{}},
		{"wildcard means pattern", repository.Filters{"name": "%LTA"}, []string{"d"}},
		{"numbers compare exactly", repository.Filters{"price": 300}, []string{"c"}},
		{"combined filters", repository.Filters{"status": "active", "name": "%a%"}, []string{"c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.Paginate(ctx, repository.Query{Filters: tt.filters, PerPage: 50})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
			assert.Equal(t, len(tt.want), page.Meta.Total)
		})
	}
}

func TestRepository_Paginate_UnknownFilterIsRejected(t *testing.T) {
	repo, _ := newWidgets(t)

	_, err := repo.Paginate(context.Background(), repository.Query{Filters: repository.Filters{"secret": "x"}})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestRepository_Paginate_Search(t *testing.T) {
	repo, _ := newWidgets(t)
	ctx := context.Background()

	page, err := repo.Paginate(ctx, repository.Query{Search: "ha", PerPage: 10, SortDirection: "asc", SortField: "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(page.Items))

	// Overriding the searched fields.
	page, err = repo.Paginate(ctx, repository.Query{Search: "inact", SearchFields: []string{"status"}, PerPage: 10})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "d"}, ids(page.Items))

	// An empty field list turns search off.
	empty := widgetDescriptor
	empty.Searchable = nil
	backend := repositorytest.NewMemoryBackend(empty).Seed(seedWidgets()...)
	unsearchable := repository.New(backend, empty, pagination.DefaultPolicy)

	page, err = unsearchable.Paginate(ctx, repository.Query{Search: "zzz", PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
}

func TestRepository_Paginate_SortDirection(t *testing.T) {
	repo, _ := newWidgets(t)
	ctx := context.Background()

	tests := []struct {
		direction string
		want      []string
	}{
		{"asc", []string{"a", "b", "c", "d", "e"}},
		{"ASC", []string{"a", "b", "c", "d", "e"}},
		{"desc", []string{"e", "d", "c", "b", "a"}},
		{"sideways", []string{"e", "d", "c", "b", "a"}},
		{"", []string{"e", "d", "c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			page, err := repo.Paginate(ctx, repository.Query{SortField: "price", SortDirection: tt.direction, PerPage: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
		})
	}

	_, err := repo.Paginate(ctx, repository.Query{SortField: "password"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestRepository_Paginate_ClampsPageSize(t *testing.T) {
	repo, _ := newWidgets(t)
	ctx := context.Background()

	tests := []struct {
		requested int
		effective int
	}{
		{-5, 1},
		{0, 1},
		{2, 2},
		{100, 100},
		{1000, 100},
	}

	for _, tt := range tests {
		page, err := repo.Paginate(ctx, repository.Query{PerPage: tt.requested})
		require.NoError(t, err)
		assert.Equal(t, tt.effective, page.Meta.PerPage, "requested %d", tt.requested)
	}
}

func TestRepository_Paginate_Meta(t *testing.T) {
	repo, _ := newWidgets(t)

	page, err := repo.Paginate(context.Background(), repository.Query{Page: 2, PerPage: 2, SortField: "id", SortDirection: "asc"})
	require.NoError(t, err)

	assert.Equal(t, []string{"c", "d"}, ids(page.Items))
	assert.Equal(t, pagination.Meta{
		CurrentPage:  2,
		PerPage:      2,
		Total:        5,
		LastPage:     3,
		From:         3,
		To:           4,
		HasMorePages: true,
	}, page.Meta)
}

// # Mutations

func TestRepository_Create_StampsTimes(t *testing.T) {
	repo, backend := newWidgets(t)

	created, err := repo.Create(context.Background(), &widget{ID: "f", Name: "Foxtrot", Status: "active"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	stored, ok := backend.Get("f")
	require.True(t, ok)
	assert.Equal(t, "Foxtrot", stored.Name)
}

func TestRepository_Update(t *testing.T) {
	repo, _ := newWidgets(t)
	ctx := context.Background()

	updated, err := repo.Update(ctx, "a", map[string]any{"name": "Alpha Prime", "price": float64(150)})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Prime", updated.Name)
	assert.Equal(t, int64(150), updated.Price)
	assert.False(t, updated.UpdatedAt.IsZero())

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"empty payload", map[string]any{}},
		{"unknown column", map[string]any{"password": "x"}},
		{"immutable column", map[string]any{"created_at": "2020-01-01T00:00:00Z"}},
		{"primary key", map[string]any{"id": "zz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Update(ctx, "a", tt.fields)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
		})
	}

	_, err = repo.Update(ctx, "zz", map[string]any{"name": "x"})
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

// # Soft Delete Lifecycle

func TestRepository_SoftDeleteLifecycle(t *testing.T) {
	repo, backend := newWidgets(t)
	ctx := context.Background()

	require.True(t, repo.SupportsSoftDelete())
	require.NoError(t, repo.Delete(ctx, "b"))

	_, err := repo.FindByID(ctx, "b")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), "trashed rows are hidden")

	trashed, err := repo.FindOnlyTrashed(ctx, "b")
	require.NoError(t, err)
	assert.True(t, trashed.IsTrashed())

	_, err = repo.FindWithTrashed(ctx, "b")
	require.NoError(t, err)

	page, err := repo.ListTrashed(ctx, repository.Query{PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(page.Items))

	active, err := repo.Paginate(ctx, repository.Query{PerPage: 10})
	require.NoError(t, err)
	assert.NotContains(t, ids(active.Items), "b")

	// Deleting twice finds nothing to delete.
	assert.True(t, apperr.HasCode(repo.Delete(ctx, "b"), apperr.CodeNotFound))

	restored, err := repo.Restore(ctx, "b")
	require.NoError(t, err)
	assert.True(t, restored)

	restored, err = repo.Restore(ctx, "b")
	require.NoError(t, err)
	assert.False(t, restored, "restoring an active row reports false")

	_, err = repo.Restore(ctx, "zz")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	require.NoError(t, repo.Delete(ctx, "b"))
	require.NoError(t, repo.ForceDelete(ctx, "b"))
	_, ok := backend.Get("b")
	assert.False(t, ok)
}

func TestRepository_WithoutSoftDelete(t *testing.T) {
	backend := repositorytest.NewMemoryBackend(labelDescriptor).Seed(
		&label{ID: "1", Name: "urgent", CreatedAt: epoch},
		&label{ID: "2", Name: "later", CreatedAt: epoch.Add(time.Minute)},
	)
	repo := repository.New(backend, labelDescriptor, pagination.DefaultPolicy)
	ctx := context.Background()

	assert.False(t, repo.SupportsSoftDelete())

	require.NoError(t, repo.Delete(ctx, "1"))
	_, ok := backend.Get("1")
	assert.False(t, ok, "delete is terminal")

	restored, err := repo.Restore(ctx, "1")
	require.NoError(t, err)
	assert.False(t, restored)

	page, err := repo.ListTrashed(ctx, repository.Query{PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Meta.Total)

	_, err = repo.FindOnlyTrashed(ctx, "2")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))

	require.NoError(t, repo.ForceDelete(ctx, "2"))
	assert.Equal(t, 0, backend.Len())
}
