// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository

import (
	"reflect"
	"sort"
	"strings"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

// WildcardMarker turns a string filter value into a pattern match.
const WildcardMarker = "%"

// # Filter Semantics

// Filters maps a column name to a value whose shape selects the comparison:
//
//   - a list ([]string, []int, []any, ...) matches set membership (IN)
//   - a string containing [WildcardMarker] is a case-insensitive pattern (ILIKE)
//   - nil matches NULL
//   - any other scalar is an exact match
type Filters map[string]any

// Operator is the comparison selected for a filter value.
type Operator int

const (
	OpEqual Operator = iota
	OpIn
	OpLike
	OpNull
)

// Condition is one classified filter.
type Condition struct {
	Field    string
	Operator Operator
	Value    any
	Values   []any
}

// Classify selects the comparison for a single filter value.
func Classify(field string, value any) Condition {
	if value == nil {
		return Condition{Field: field, Operator: OpNull}
	}

	if text, ok := value.(string); ok {
		if strings.Contains(text, WildcardMarker) {
			return Condition{Field: field, Operator: OpLike, Value: text}
		}
		return Condition{Field: field, Operator: OpEqual, Value: text}
	}

	reflected := reflect.ValueOf(value)
	if kind := reflected.Kind(); (kind == reflect.Slice || kind == reflect.Array) && reflected.Type().Elem().Kind() != reflect.Uint8 {
		values := make([]any, reflected.Len())
		for i := range values {
			values[i] = reflected.Index(i).Interface()
		}
		return Condition{Field: field, Operator: OpIn, Values: values}
	}

	return Condition{Field: field, Operator: OpEqual, Value: value}
}

// # Sorting

// Direction is a normalised sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// NormalizeDirection maps "asc"/"desc" (any case) to a [Direction];
// every other value becomes [Descending].
func NormalizeDirection(raw string) Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(Ascending):
		return Ascending
	default:
		return Descending
	}
}

// # Query

// Query is the caller-facing description of one page of results.
type Query struct {
	Filters Filters
	Search  string

	// SearchFields overrides the resource's default searchable columns.
	SearchFields []string

	SortField     string
	SortDirection string
	Page          int
	PerPage       int
}

// Search is an OR-combination of pattern matches of Term over Fields.
type Search struct {
	Term   string
	Fields []string
}

// Active reports whether the search contributes a predicate.
func (s Search) Active() bool {
	return s.Term != "" && len(s.Fields) > 0
}

// Criteria is a fully validated, backend-ready query.
type Criteria struct {
	Conditions []Condition
	Search     Search
	Trashed    Trashed
	SortField  string
	Direction  Direction

	// Limit 0 means unbounded.
	Limit  int
	Offset int
}

// Page is one page of results plus its metadata.
type Page[T any] struct {
	Items []T
	Meta  pagination.Meta
}

// # Normalisation

func (repository *Repository[T]) conditions(filters Filters) ([]Condition, error) {
	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var details []apperr.FieldError
	conditions := make([]Condition, 0, len(fields))
	for _, field := range fields {
		if !repository.descriptor.HasColumn(field) {
			details = append(details, apperr.FieldError{Field: field, Message: "Unknown filter field"})
			continue
		}
		conditions = append(conditions, Classify(field, filters[field]))
	}

	if len(details) > 0 {
		return nil, apperr.ValidationError("Invalid filters", details...)
	}
	return conditions, nil
}

func (repository *Repository[T]) search(term string, override []string) (Search, error) {
	fields := override
	if len(fields) == 0 {
		fields = repository.descriptor.Searchable
	}

	for _, field := range fields {
		if !repository.descriptor.HasColumn(field) {
			return Search{}, apperr.ValidationError("Invalid search fields",
				apperr.FieldError{Field: field, Message: "Unknown search field"})
		}
	}

	return Search{Term: strings.TrimSpace(term), Fields: fields}, nil
}

func (repository *Repository[T]) sortField(field string) (string, error) {
	if field == "" {
		return repository.descriptor.DefaultSort, nil
	}
	if !repository.descriptor.HasColumn(field) {
		return "", apperr.ValidationError("Invalid sort field",
			apperr.FieldError{Field: "sort", Message: "Unknown sort field " + field})
	}
	return field, nil
}

// criteria validates a Query and resolves paging against the policy.
func (repository *Repository[T]) criteria(query Query, trashed Trashed) (Criteria, int, error) {
	conditions, err := repository.conditions(query.Filters)
	if err != nil {
		return Criteria{}, 0, err
	}

	search, err := repository.search(query.Search, query.SearchFields)
	if err != nil {
		return Criteria{}, 0, err
	}

	sortField, err := repository.sortField(query.SortField)
	if err != nil {
		return Criteria{}, 0, err
	}

	page := pagination.Page(query.Page)
	perPage := repository.policy.Clamp(query.PerPage)

	return Criteria{
		Conditions: conditions,
		Search:     search,
		Trashed:    trashed,
		SortField:  sortField,
		Direction:  NormalizeDirection(query.SortDirection),
		Limit:      perPage,
		Offset:     pagination.Offset(page, perPage),
	}, page, nil
}
