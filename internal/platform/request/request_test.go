// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/ctxutil"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	requestutil "github.com/taibuivan/backoffice/internal/platform/request"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

func listRequest(values url.Values) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/?"+values.Encode(), nil)
}

func TestListQuery(t *testing.T) {
	request := listRequest(url.Values{
		"page":           {"3"},
		"per_page":       {"25"},
		"search":         {"  gold "},
		"search_fields":  {"name, slug"},
		"sort":           {"name"},
		"direction":      {"asc"},
		"filter[status]": {"active,inactive"},
		"filter[name]":   {"%gold%"},
		"filter[tier]":   {"1"},
		"unrelated":      {"x"},
	})

	got := requestutil.ListQuery(request, pagination.DefaultPolicy)

	assert.Equal(t, 3, got.Page)
	assert.Equal(t, 25, got.PerPage)
	assert.Equal(t, "gold", got.Search)
	assert.Equal(t, []string{"name", "slug"}, got.SearchFields)
	assert.Equal(t, "name", got.SortField)
	assert.Equal(t, "asc", got.SortDirection)
	assert.Equal(t, repository.Filters{
		"status": []any{"active", "inactive"},
		"name":   "%gold%",
		"tier":   "1",
	}, got.Filters)
}

func TestListQuery_Defaults(t *testing.T) {
	policy := pagination.Policy{MinPerPage: 1, MaxPerPage: 50, DefaultPerPage: 10}

	got := requestutil.ListQuery(listRequest(url.Values{"page": {"abc"}}), policy)

	assert.Equal(t, pagination.FirstPage, got.Page)
	assert.Equal(t, 10, got.PerPage)
	assert.Nil(t, got.SearchFields)
	assert.Empty(t, got.Filters)
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"gold"}`))
	require.NoError(t, requestutil.DecodeJSON(request, &target))
	assert.Equal(t, "gold", target.Name)

	request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := requestutil.DecodeJSON(request, &target)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestActor(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := requestutil.Actor(request)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = requestutil.RequiredClaims(request)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	claims := &sec.SessionClaims{
		PrincipalID: "a-1",
		GuardType:   rbac.GuardAdmin.String(),
		Roles:       []string{"editor"},
		Permissions: []string{"packages.view"},
		Level:       20,
	}
	request = request.WithContext(ctxutil.WithSession(request.Context(), claims))

	actor, err := requestutil.Actor(request)
	require.NoError(t, err)
	assert.Equal(t, "a-1", actor.ID)
	assert.Equal(t, rbac.GuardAdmin, actor.Guard)
	assert.Equal(t, 20, actor.Level)
	assert.True(t, actor.Can(rbac.Of(rbac.GuardAdmin, "packages", rbac.ActionView)))
	assert.Same(t, claims, requestutil.Claims(request))
}
