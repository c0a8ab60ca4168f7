// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repository_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/backoffice/internal/platform/repository"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		operator repository.Operator
	}{
		{"nil", nil, repository.OpNull},
		{"plain string", "active", repository.OpEqual},
		{"wildcard string", "gold%", repository.OpLike},
		{"integer", 42, repository.OpEqual},
		{"boolean", true, repository.OpEqual},
		{"string list", []string{"a", "b"}, repository.OpIn},
		{"mixed list", []any{1, "b"}, repository.OpIn},
		{"bytes stay scalar", []byte("raw"), repository.OpEqual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			condition := repository.Classify("field", tt.value)
			assert.Equal(t, tt.operator, condition.Operator)
			assert.Equal(t, "field", condition.Field)
		})
	}

	list := repository.Classify("id", []int{3, 4})
	assert.Equal(t, []any{3, 4}, list.Values)
}

func TestNormalizeDirection(t *testing.T) {
	assert.Equal(t, repository.Ascending, repository.NormalizeDirection("asc"))
	assert.Equal(t, repository.Ascending, repository.NormalizeDirection(" Asc "))
	assert.Equal(t, repository.Descending, repository.NormalizeDirection("DESC"))
	assert.Equal(t, repository.Descending, repository.NormalizeDirection("random"))
	assert.Equal(t, repository.Descending, repository.NormalizeDirection(""))
}
