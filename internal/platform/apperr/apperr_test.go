// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
)

/*
TestIsExpected separates caller-attributable conditions from server failures.
*/
func TestIsExpected(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"not_found", apperr.NotFound("Package"), true},
		{"conflict", apperr.Conflict("in use"), true},
		{"validation", apperr.ValidationError("bad"), true},
		{"forbidden", apperr.Forbidden("no"), true},
		{"wrapped_not_found", fmt.Errorf("bulk: %w", apperr.NotFound("User")), true},
		{"internal", apperr.Internal(errors.New("boom")), false},
		{"plain_error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apperr.IsExpected(tt.err))
		})
	}
}

/*
TestInvalidCredentials_Shape pins the status and code of the merged login failure.
*/
func TestInvalidCredentials_Shape(t *testing.T) {
	err := apperr.InvalidCredentials()

	assert.Equal(t, http.StatusUnauthorized, err.HTTPStatus)
	assert.Equal(t, apperr.CodeInvalidCredentials, err.Code)
	assert.Equal(t, apperr.InvalidCredentials().Message, err.Message)
}

/*
TestWithCause keeps the original error untouched.
*/
func TestWithCause(t *testing.T) {
	base := apperr.Conflict("Role is still assigned")
	cause := errors.New("3 principals")

	wrapped := base.WithCause(cause)

	require.NotSame(t, base, wrapped)
	assert.Nil(t, base.Cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, apperr.HasCode(wrapped, apperr.CodeConflict))
}
