// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/ctxutil"
	"github.com/taibuivan/backoffice/internal/platform/respond"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

type envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	StatusCode int              `json:"status_code"`
	Timestamp  string           `json:"timestamp"`
	Data       json.RawMessage  `json:"data"`
	Pagination *pagination.Meta `json:"pagination"`
	Errors     *struct {
		Code    string              `json:"code"`
		Details []apperr.FieldError `json:"details"`
		Detail  string              `json:"detail"`
	} `json:"errors"`
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestOK(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.OK(recorder, "Role retrieved", map[string]string{"name": "moderator"})

	body := decode(t, recorder)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "Role retrieved", body.Message)
	assert.Equal(t, http.StatusOK, body.StatusCode)
	assert.NotEmpty(t, body.Timestamp)
	assert.JSONEq(t, `{"name":"moderator"}`, string(body.Data))
	assert.Nil(t, body.Errors)
}

func TestPaginated(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.Paginated(recorder, "Packages retrieved", []int{1, 2}, pagination.NewMeta(1, 2, 5, 2))

	body := decode(t, recorder)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 3, body.Pagination.LastPage)
	assert.True(t, body.Pagination.HasMorePages)
	assert.JSONEq(t, `[1,2]`, string(body.Data))
}

/*
TestError_Expected maps an AppError to its status and code.
*/
func TestError_Expected(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/roles/1", nil)

	respond.Error(recorder, request, apperr.Conflict("Role is still assigned"))

	body := decode(t, recorder)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.False(t, body.Success)
	assert.Equal(t, http.StatusConflict, body.StatusCode)
	require.NotNil(t, body.Errors)
	assert.Equal(t, apperr.CodeConflict, body.Errors.Code)
}

/*
TestError_Sanitised hides the cause unless the context allows exposure.
*/
func TestError_Sanitised(t *testing.T) {
	cause := errors.New("pq: relation \"roles\" does not exist")

	tests := []struct {
		name   string
		expose bool
		detail string
	}{
		{"production", false, ""},
		{"development", true, cause.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request = request.WithContext(ctxutil.WithErrorExposure(request.Context(), tt.expose))

			respond.Error(recorder, request, cause)

			body := decode(t, recorder)
			assert.Equal(t, http.StatusInternalServerError, recorder.Code)
			assert.Equal(t, "An unexpected error occurred", body.Message)
			require.NotNil(t, body.Errors)
			assert.Equal(t, tt.detail, body.Errors.Detail)
		})
	}
}

func TestFile(t *testing.T) {
	recorder := httptest.NewRecorder()
	respond.File(recorder, "packages.csv", "text/csv; charset=utf-8", []byte("id\n1\n"))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `attachment; filename="packages.csv"`, recorder.Header().Get("Content-Disposition"))
	assert.Equal(t, "id\n1\n", recorder.Body.String())
}
