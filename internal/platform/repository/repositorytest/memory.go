// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package repositorytest provides an in-memory [repository.Backend] for
// service and handler tests.
//
// Entities are pointers to bun models; columns are resolved from the bun
// struct tags so that descriptors work unchanged against both backends.
package repositorytest

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/backoffice/internal/platform/repository"
)

// Fault lets a test fail a specific operation on a specific id.
// op is one of: find, list, insert, patch, soft_delete, restore, hard_delete.
type Fault func(op, id string) error

type table[T repository.Entity] struct {
	mu    sync.Mutex
	order []string
	rows  map[string]T
	fault Fault
	clock func() time.Time
}

// MemoryBackend implements [repository.Backend] over a map.
type MemoryBackend[T repository.Entity] struct {
	table      *table[T]
	descriptor repository.Descriptor[T]
	inTx       bool
}

// NewMemoryBackend returns an empty backend for the described resource.
func NewMemoryBackend[T repository.Entity](descriptor repository.Descriptor[T]) *MemoryBackend[T] {
	return &MemoryBackend[T]{
		table:      &table[T]{rows: map[string]T{}, clock: time.Now},
		descriptor: descriptor,
	}
}

// Seed inserts entities as-is, keeping any deletion marker they carry.
func (backend *MemoryBackend[T]) Seed(entities ...T) *MemoryBackend[T] {
	backend.table.mu.Lock()
	defer backend.table.mu.Unlock()

	for _, entity := range entities {
		id := entity.PrimaryKey()
		if _, exists := backend.table.rows[id]; !exists {
			backend.table.order = append(backend.table.order, id)
		}
		backend.table.rows[id] = clone(entity)
	}
	return backend
}

// InjectFault installs (or clears, with nil) a failure hook.
func (backend *MemoryBackend[T]) InjectFault(fault Fault) {
	backend.table.mu.Lock()
	defer backend.table.mu.Unlock()
	backend.table.fault = fault
}

// Get returns a copy of the stored row in any state.
func (backend *MemoryBackend[T]) Get(id string) (T, bool) {
	backend.table.mu.Lock()
	defer backend.table.mu.Unlock()

	row, ok := backend.table.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(row), true
}

// Len counts stored rows in any state.
func (backend *MemoryBackend[T]) Len() int {
	backend.table.mu.Lock()
	defer backend.table.mu.Unlock()
	return len(backend.table.rows)
}

func (table *table[T]) check(op, id string) error {
	if table.fault == nil {
		return nil
	}
	return table.fault(op, id)
}

// # Reads

func (backend *MemoryBackend[T]) FindOne(_ context.Context, column string, value any, trashed repository.Trashed) (T, error) {
	var zero T
	table := backend.table
	table.mu.Lock()
	defer table.mu.Unlock()

	if err := table.check("find", fmt.Sprint(value)); err != nil {
		return zero, err
	}

	for _, id := range table.order {
		row := table.rows[id]
		if !visible(row, trashed) {
			continue
		}
		field, ok := columnValue(row, column)
		if ok && matches(field, repository.Condition{Field: column, Operator: repository.OpEqual, Value: value}) {
			return clone(row), nil
		}
	}
	return zero, backend.descriptor.NotFound()
}

func (backend *MemoryBackend[T]) List(_ context.Context, criteria repository.Criteria) ([]T, int, error) {
	table := backend.table
	table.mu.Lock()
	defer table.mu.Unlock()

	if err := table.check("list", ""); err != nil {
		return nil, 0, err
	}

	var selected []T
	for _, id := range table.order {
		row := table.rows[id]
		if visible(row, criteria.Trashed) && selects(row, criteria) {
			selected = append(selected, row)
		}
	}

	descending := criteria.Direction == repository.Descending
	slices.SortStableFunc(selected, func(a, b T) int {
		order := compareColumn(a, b, criteria.SortField)
		if order == 0 {
			order = strings.Compare(a.PrimaryKey(), b.PrimaryKey())
		}
		if descending {
			return -order
		}
		return order
	})

	total := len(selected)
	if criteria.Limit > 0 {
		start := min(criteria.Offset, total)
		end := min(start+criteria.Limit, total)
		selected = selected[start:end]
	}

	items := make([]T, 0, len(selected))
	for _, row := range selected {
		items = append(items, clone(row))
	}
	return items, total, nil
}

// # Writes

func (backend *MemoryBackend[T]) Insert(_ context.Context, entity T) error {
	table := backend.table
	table.mu.Lock()
	defer table.mu.Unlock()

	id := entity.PrimaryKey()
	if err := table.check("insert", id); err != nil {
		return err
	}
	if _, exists := table.rows[id]; exists {
		return fmt.Errorf("repositorytest: duplicate id %q", id)
	}

	table.order = append(table.order, id)
	table.rows[id] = clone(entity)
	return nil
}

func (backend *MemoryBackend[T]) Patch(_ context.Context, id string, fields map[string]any) error {
	table := backend.table
	table.mu.Lock()
	defer table.mu.Unlock()

	if err := table.check("patch", id); err != nil {
		return err
	}

	row, ok := table.rows[id]
	if !ok || !visible(row, repository.ExcludeTrashed) {
		return backend.descriptor.NotFound()
	}

	updated := clone(row)
	for column, value := range fields {
		field, ok := columnField(reflect.ValueOf(updated).Elem(), column)
		if !ok {
			return fmt.Errorf("repositorytest: unknown column %q", column)
		}
		if err := assign(field, value); err != nil {
			return fmt.Errorf("repositorytest: column %q: %w", column, err)
		}
	}

	table.rows[id] = updated
	return nil
}

func (backend *MemoryBackend[T]) SoftDelete(_ context.Context, id string) error {
	return backend.mark(id, "soft_delete", repository.ExcludeTrashed, backend.table.clock())
}

func (backend *MemoryBackend[T]) Restore(_ context.Context, id string) error {
	return backend.mark(id, "restore", repository.OnlyTrashed, time.Time{})
}

func (backend *MemoryBackend[T]) mark(id, op string, state repository.Trashed, at time.Time) error {
	table := backend.table
	table.mu.Lock()
	defer table.mu.Unlock()

	if err := table.check(op, id); err != nil {
		return err
	}

	row, ok := table.rows[id]
	if !ok || !visible(row, state) {
		return backend.descriptor.NotFound()
	}

	updated := clone(row)
	field, ok := softDeleteField(reflect.ValueOf(updated).Elem())
	if !ok {
		return fmt.Errorf("repositorytest: %s has no soft delete column", backend.descriptor.Name)
	}
	field.Set(reflect.ValueOf(at))

	table.rows[id] = updated
	return nil
}

func (backend *MemoryBackend[T]) HardDelete(_ context.Context, id string) error {
	table := backend.table
	table.mu.Lock()
	defer table.mu.Unlock()

	if err := table.check("hard_delete", id); err != nil {
		return err
	}
	if _, ok := table.rows[id]; !ok {
		return backend.descriptor.NotFound()
	}

	delete(table.rows, id)
	table.order = slices.DeleteFunc(table.order, func(candidate string) bool { return candidate == id })
	return nil
}

// # Transactions

func (backend *MemoryBackend[T]) Transaction(ctx context.Context, fn func(ctx context.Context, tx repository.Backend[T]) error) error {
	if backend.inTx {
		return fn(ctx, backend)
	}

	bound := *backend
	bound.inTx = true
	return backend.guard(func() error { return fn(ctx, &bound) })
}

func (backend *MemoryBackend[T]) Savepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	return backend.guard(func() error { return fn(ctx) })
}

// guard restores the table to its prior content when fn fails.
func (backend *MemoryBackend[T]) guard(fn func() error) error {
	table := backend.table

	table.mu.Lock()
	order := slices.Clone(table.order)
	rows := make(map[string]T, len(table.rows))
	for id, row := range table.rows {
		rows[id] = clone(row)
	}
	table.mu.Unlock()

	if err := fn(); err != nil {
		table.mu.Lock()
		table.order, table.rows = order, rows
		table.mu.Unlock()
		return err
	}
	return nil
}

// # Reflection Helpers

func clone[T any](entity T) T {
	value := reflect.ValueOf(entity)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return entity
	}
	copied := reflect.New(value.Elem().Type())
	copied.Elem().Set(value.Elem())
	return copied.Interface().(T)
}

func visible(row any, trashed repository.Trashed) bool {
	soft, ok := row.(repository.SoftDeletable)
	if !ok {
		return trashed != repository.OnlyTrashed
	}
	switch trashed {
	case repository.WithTrashed:
		return true
	case repository.OnlyTrashed:
		return soft.IsTrashed()
	default:
		return !soft.IsTrashed()
	}
}

// tagName returns the column declared by a bun struct tag.
func tagName(field reflect.StructField) (string, []string) {
	parts := strings.Split(field.Tag.Get("bun"), ",")
	return parts[0], parts[1:]
}

func columnField(value reflect.Value, column string) (reflect.Value, bool) {
	kind := value.Type()
	for i := 0; i < kind.NumField(); i++ {
		field := kind.Field(i)
		name, _ := tagName(field)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if found, ok := columnField(value.Field(i), column); ok {
				return found, true
			}
			continue
		}
		if name == column && field.IsExported() {
			return value.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func softDeleteField(value reflect.Value) (reflect.Value, bool) {
	kind := value.Type()
	for i := 0; i < kind.NumField(); i++ {
		field := kind.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if found, ok := softDeleteField(value.Field(i)); ok {
				return found, true
			}
			continue
		}
		if _, options := tagName(field); slices.Contains(options, "soft_delete") {
			return value.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// columnValue returns the dereferenced column value; nil means SQL NULL.
func columnValue(row any, column string) (any, bool) {
	field, ok := columnField(reflect.ValueOf(row).Elem(), column)
	if !ok {
		return nil, false
	}
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return nil, true
		}
		field = field.Elem()
	}
	if stamp, ok := field.Interface().(time.Time); ok && stamp.IsZero() {
		return nil, true
	}
	return field.Interface(), true
}

func selects(row any, criteria repository.Criteria) bool {
	for _, condition := range criteria.Conditions {
		value, _ := columnValue(row, condition.Field)
		if !matches(value, condition) {
			return false
		}
	}

	if !criteria.Search.Active() {
		return true
	}
	pattern := likePattern("%" + criteria.Search.Term + "%")
	for _, field := range criteria.Search.Fields {
		value, _ := columnValue(row, field)
		if value != nil && pattern.MatchString(fmt.Sprint(value)) {
			return true
		}
	}
	return false
}

func matches(value any, condition repository.Condition) bool {
	switch condition.Operator {
	case repository.OpNull:
		return value == nil
	case repository.OpLike:
		return value != nil && likePattern(fmt.Sprint(condition.Value)).MatchString(fmt.Sprint(value))
	case repository.OpIn:
		for _, candidate := range condition.Values {
			if value != nil && fmt.Sprint(value) == fmt.Sprint(candidate) {
				return true
			}
		}
		return false
	default:
		return value != nil && fmt.Sprint(value) == fmt.Sprint(condition.Value)
	}
}

// likePattern compiles an ILIKE pattern ('%' any run, '_' one char).
func likePattern(pattern string) *regexp.Regexp {
	var builder strings.Builder
	builder.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			builder.WriteString(".*")
		case '_':
			builder.WriteString(".")
		default:
			builder.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	builder.WriteString("$")
	return regexp.MustCompile(builder.String())
}

func compareColumn(a, b any, column string) int {
	left, _ := columnValue(a, column)
	right, _ := columnValue(b, column)

	switch {
	case left == nil && right == nil:
		return 0
	case left == nil:
		return -1
	case right == nil:
		return 1
	}

	switch typed := left.(type) {
	case time.Time:
		return typed.Compare(right.(time.Time))
	case string:
		return strings.Compare(typed, right.(string))
	case bool:
		return cmp.Compare(strconv.FormatBool(typed), strconv.FormatBool(right.(bool)))
	}

	lv, rv := reflect.ValueOf(left), reflect.ValueOf(right)
	switch {
	case lv.CanInt():
		return cmp.Compare(lv.Int(), rv.Int())
	case lv.CanUint():
		return cmp.Compare(lv.Uint(), rv.Uint())
	case lv.CanFloat():
		return cmp.Compare(lv.Float(), rv.Float())
	}
	return strings.Compare(fmt.Sprint(left), fmt.Sprint(right))
}

// assign stores a JSON-shaped value into a typed field.
func assign(field reflect.Value, value any) error {
	if value == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}

	target := field
	if field.Kind() == reflect.Pointer {
		target = reflect.New(field.Type().Elem()).Elem()
	}

	if err := convert(target, value); err != nil {
		return err
	}

	if field.Kind() == reflect.Pointer {
		holder := reflect.New(target.Type())
		holder.Elem().Set(target)
		field.Set(holder)
	}
	return nil
}

func convert(target reflect.Value, value any) error {
	if number, ok := value.(json.Number); ok {
		value = number.String()
	}

	source := reflect.ValueOf(value)
	if source.Type().AssignableTo(target.Type()) {
		target.Set(source)
		return nil
	}

	if _, ok := target.Interface().(time.Time); ok {
		if text, ok := value.(string); ok {
			parsed, err := time.Parse(time.RFC3339Nano, text)
			if err != nil {
				return err
			}
			target.Set(reflect.ValueOf(parsed))
			return nil
		}
	}

	if text, ok := value.(string); ok && target.Kind() != reflect.String {
		switch {
		case target.CanInt():
			parsed, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return err
			}
			target.SetInt(parsed)
			return nil
		case target.CanFloat():
			parsed, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return err
			}
			target.SetFloat(parsed)
			return nil
		case target.Kind() == reflect.Bool:
			parsed, err := strconv.ParseBool(text)
			if err != nil {
				return err
			}
			target.SetBool(parsed)
			return nil
		}
	}

	if target.Kind() == reflect.String && source.Kind() != reflect.String {
		target.SetString(fmt.Sprint(value))
		return nil
	}

	if source.CanConvert(target.Type()) {
		target.Set(source.Convert(target.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, target.Type())
}
