// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the router's parameter extraction, body decoding and the
list-query grammar shared by every resource:

	?page=2&per_page=25&search=gold&sort=name&direction=asc
	&filter[status]=active,inactive&filter[name]=%gold%

A comma in a filter value selects set membership; a "%" selects a pattern.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/backoffice/internal/access/policy"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/ctxutil"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/internal/platform/validate"
	"github.com/taibuivan/backoffice/pkg/pagination"
	"github.com/taibuivan/backoffice/pkg/query"
)

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, request.Body, MaxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (UUID) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

// # Identity

/*
Claims extracts the verified session claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.SessionClaims {
	return ctxutil.GetSession(request.Context())
}

/*
RequiredClaims ensures the request is authenticated and returns its claims.

Returns:
  - *sec.SessionClaims: The verified claims
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredClaims(request *http.Request) (*sec.SessionClaims, error) {
	claims := ctxutil.GetSession(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}

// Actor builds the acting principal from the request's session snapshot.
func Actor(request *http.Request) (policy.Actor, error) {
	return policy.FromClaims(ctxutil.GetSession(request.Context()))
}

// # Listing

/*
ListQuery parses the list grammar into a repository query.

Description: per_page defaults to the policy default; clamping and
direction normalisation are left to the repository so that every caller
shares one rule.

Parameters:
  - request: *http.Request
  - policy: pagination.Policy

Returns:
  - repository.Query
*/
func ListQuery(request *http.Request, policy pagination.Policy) repository.Query {
	values := request.URL.Query()

	result := repository.Query{
		Search:        strings.TrimSpace(values.Get("search")),
		SortField:     strings.TrimSpace(values.Get("sort")),
		SortDirection: values.Get("direction"),
		Page:          query.Int(values.Get("page"), pagination.FirstPage),
		PerPage:       query.Int(values.Get("per_page"), policy.DefaultPerPage),
		Filters:       Filters(request),
	}
	if fields := query.List(values.Get("search_fields")); len(fields) > 0 {
		result.SearchFields = fields
	}
	return result
}

// Filters collects filter[field]=value parameters.
func Filters(request *http.Request) repository.Filters {
	filters := repository.Filters{}

	for key, raw := range request.URL.Query() {
		field, ok := strings.CutPrefix(key, "filter[")
		if !ok || !strings.HasSuffix(field, "]") || len(raw) == 0 {
			continue
		}
		field = strings.TrimSuffix(field, "]")

		value := raw[len(raw)-1]
		if strings.Contains(value, ",") {
			parts := query.List(value)
			list := make([]any, len(parts))
			for i, part := range parts {
				list[i] = part
			}
			filters[field] = list
			continue
		}
		filters[field] = value
	}
	return filters
}
