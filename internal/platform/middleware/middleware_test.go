// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/ctxutil"
	"github.com/taibuivan/backoffice/internal/platform/middleware"
	"github.com/taibuivan/backoffice/internal/platform/sec"
)

type stubVerifier struct {
	sessions map[string]*sec.SessionClaims
	calls    int
}

func (verifier *stubVerifier) Verify(_ context.Context, token string) (*sec.SessionClaims, error) {
	verifier.calls++
	claims, ok := verifier.sessions[token]
	if !ok {
		return nil, apperr.Unauthorized("Invalid or expired session")
	}
	return claims, nil
}

func newVerifier() *stubVerifier {
	return &stubVerifier{sessions: map[string]*sec.SessionClaims{
		"member-token": {PrincipalID: "u-1", GuardType: rbac.GuardUser.String()},
		"staff-token":  {PrincipalID: "a-1", GuardType: rbac.GuardAdmin.String()},
	}}
}

// echoPrincipal writes the principal id found in the context, or "anonymous".
var echoPrincipal = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	claims := ctxutil.GetSession(request.Context())
	if claims == nil {
		_, _ = writer.Write([]byte("anonymous"))
		return
	}
	_, _ = writer.Write([]byte(claims.PrincipalID))
})

func serve(handler http.Handler, request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		cookie  string
		want    string
		wantErr bool
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "case-insensitive scheme", header: "bearer abc", want: "abc"},
		{name: "header wins over cookie", header: "Bearer abc", cookie: "def", want: "abc"},
		{name: "cookie fallback", cookie: "def", want: "def"},
		{name: "nothing presented", want: ""},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "empty bearer", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				request.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}

			token, err := middleware.TokenFromRequest(request, "access_token")
			if tt.wantErr {
				assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	verifier := newVerifier()
	handler := middleware.Authenticate(verifier, "access_token")(echoPrincipal)

	t.Run("anonymous passes through", func(t *testing.T) {
		recorder := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "anonymous", recorder.Body.String())
	})

	t.Run("valid token injects the session", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.AddCookie(&http.Cookie{Name: "access_token", Value: "member-token"})

		recorder := serve(handler, request)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "u-1", recorder.Body.String())
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer forged")

		recorder := serve(handler, request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestRequireGuard(t *testing.T) {
	verifier := newVerifier()
	handler := middleware.Authenticate(verifier, "")(middleware.RequireGuard(rbac.GuardAdmin)(echoPrincipal))

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "no session", status: http.StatusUnauthorized},
		{name: "member session", token: "member-token", status: http.StatusForbidden},
		{name: "staff session", token: "staff-token", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				request.Header.Set("Authorization", "Bearer "+tt.token)
			}
			assert.Equal(t, tt.status, serve(handler, request).Code)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	handler := middleware.RequireAuth(echoPrincipal)
	assert.Equal(t, http.StatusUnauthorized, serve(handler, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRequestID(t *testing.T) {
	handler := middleware.RequestID()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(ctxutil.GetRequestID(request.Context())))
	}))

	recorder := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := recorder.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, recorder.Body.String())

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "client-supplied")
	assert.Equal(t, "client-supplied", serve(handler, request).Body.String())
}

func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := serve(handler, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "boom")
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimit(ctx, 1, 2)(echoPrincipal)

	hit := func(ip string) int {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("X-Real-IP", ip)
		return serve(handler, request).Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"), "buckets are per client")
}

type corsConfig struct {
	development bool
	origins     []string
}

func (cfg corsConfig) IsDevelopment() bool      { return cfg.development }
func (cfg corsConfig) AllowedOrigins() []string { return cfg.origins }

func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{origins: []string{"http://localhost:3000"}}, ".backoffice.app")(echoPrincipal)

	tests := []struct {
		origin  string
		allowed bool
	}{
		{origin: "https://admin.backoffice.app", allowed: true},
		{origin: "http://localhost:3000", allowed: true},
		{origin: "https://evil.example", allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.Header.Set("Origin", tt.origin)

			recorder := serve(handler, request)
			if tt.allowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
				assert.Equal(t, "true", recorder.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}

	preflight := httptest.NewRequest(http.MethodOptions, "/", nil)
	preflight.Header.Set("Origin", "https://admin.backoffice.app")
	assert.Equal(t, http.StatusNoContent, serve(handler, preflight).Code)
}
