// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/access/rbac/rbactest"
	"github.com/taibuivan/backoffice/internal/access/roles"
	"github.com/taibuivan/backoffice/internal/api"
	"github.com/taibuivan/backoffice/internal/membership"
	"github.com/taibuivan/backoffice/internal/platform/config"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/repository/repositorytest"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/internal/users/account"
	"github.com/taibuivan/backoffice/internal/users/account/accounttest"
	"github.com/taibuivan/backoffice/internal/users/auth"
	"github.com/taibuivan/backoffice/pkg/pagination"
)

type noMemberships struct{}

func (noMemberships) CountActive(context.Context, string) (int, error) { return 0, nil }

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Errors     *struct {
		Code string `json:"code"`
	} `json:"errors"`
}

type app struct {
	handler  http.Handler
	accounts *accounttest.Store
	rbac     *rbactest.Store
}

func newApp(t *testing.T) *app {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	redisServer := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: redisServer.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	paging := pagination.DefaultPolicy
	rbacStore := rbactest.NewStore()
	roleService := roles.NewService(
		repository.New(rbacStore.Roles, rbac.RoleDescriptor, paging),
		repository.New(rbacStore.Permissions, rbac.PermissionDescriptor, paging),
		rbacStore,
		rbac.DefaultRegistry(),
		logger,
	)
	require.NoError(t, roleService.SyncCatalog(ctx))

	accounts := accounttest.NewStore()
	users := account.NewService(rbac.GuardUser,
		repository.New(accounts.Users, account.UserDescriptor, paging),
		accounts, roleService, repository.IsolateExpected, logger)
	admins := account.NewService(rbac.GuardAdmin,
		repository.New(accounts.Admins, account.AdminDescriptor, paging),
		accounts, roleService, repository.IsolateExpected, logger)
	packages := membership.NewService(
		repository.New[*membership.Package](repositorytest.NewMemoryBackend(membership.Descriptor), membership.Descriptor, paging),
		noMemberships{}, repository.IsolateExpected, logger)

	authService := auth.NewService(accounts, roleService, auth.NewSessionStore(client),
		sec.NewTokenServiceFromKey(key, "backoffice.test"), auth.DefaultLifetimes(), logger)

	cfg := &config.Config{Environment: "test", ServerPort: "0", SessionCookieName: "access_token", LoginRateLimit: 100}
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{}, logger)

	server := api.NewServer(ctx, cfg, logger, authService, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		UserAuth:  auth.NewHandler(authService, rbac.GuardUser, auth.CookiePolicy{Name: auth.CookieName(cfg.SessionCookieName, rbac.GuardUser)}),
		AdminAuth: auth.NewHandler(authService, rbac.GuardAdmin, auth.CookiePolicy{Name: auth.CookieName(cfg.SessionCookieName, rbac.GuardAdmin)}),
		Users:     account.NewHandler(users, "User", paging),
		Admins:    account.NewHandler(admins, "Admin", paging),
		Roles:     roles.NewHandler(roleService, paging),
		Packages:  membership.NewHandler(packages, paging),
	})

	return &app{handler: server.Handler(), accounts: accounts, rbac: rbacStore}
}

func (a *app) grant(guard rbac.Guard, principalID string, name rbac.RoleName) {
	role, ok := a.rbac.RoleByName(guard, name)
	if !ok {
		panic("missing role " + name)
	}
	a.rbac.Assign(guard, principalID, role)
}

func (a *app) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	a.handler.ServeHTTP(recorder, request)

	var decoded envelope
	if recorder.Header().Get("Content-Type") != "" && recorder.Body.Len() > 0 {
		_ = json.Unmarshal(recorder.Body.Bytes(), &decoded)
	}
	return recorder, decoded
}

func (a *app) login(t *testing.T, prefix, username, password string) string {
	t.Helper()

	recorder, body := a.do(t, http.MethodPost, prefix+"/auth/login", "", map[string]any{"login": username, "password": password})
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var session struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &session))
	require.NotEmpty(t, session.AccessToken)
	return session.AccessToken
}

func TestHealth(t *testing.T) {
	a := newApp(t)

	recorder, _ := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = a.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestGuardsAreSeparateRealms(t *testing.T) {
	a := newApp(t)

	staff := a.accounts.AddAdmin("root", "staff-secret", account.StatusActive)
	a.grant(rbac.GuardAdmin, staff.ID, rbac.RoleAdmin)
	member := a.accounts.AddUser("alice", "member-secret", account.StatusActive)
	a.grant(rbac.GuardUser, member.ID, rbac.RoleMember)

	staffToken := a.login(t, "/api/v1/admin", "root", "staff-secret")
	memberToken := a.login(t, "/api/v1", "alice", "member-secret")

	t.Run("staff reach the admin area", func(t *testing.T) {
		recorder, body := a.do(t, http.MethodGet, "/api/v1/admin/packages", staffToken, nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.True(t, body.Success)
	})

	t.Run("member sessions are refused in the admin area", func(t *testing.T) {
		recorder, body := a.do(t, http.MethodGet, "/api/v1/admin/packages", memberToken, nil)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
		require.NotNil(t, body.Errors)
		assert.Equal(t, "FORBIDDEN", body.Errors.Code)
	})

	t.Run("staff sessions are refused in the member area", func(t *testing.T) {
		recorder, _ := a.do(t, http.MethodGet, "/api/v1/packages", staffToken, nil)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})

	t.Run("member credentials do not open a staff session", func(t *testing.T) {
		recorder, body := a.do(t, http.MethodPost, "/api/v1/admin/auth/login", "", map[string]any{"login": "alice", "password": "member-secret"})
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		require.NotNil(t, body.Errors)
		assert.Equal(t, "INVALID_CREDENTIALS", body.Errors.Code)
	})

	t.Run("members browse the catalog", func(t *testing.T) {
		recorder, _ := a.do(t, http.MethodGet, "/api/v1/packages", memberToken, nil)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("anonymous requests need a session", func(t *testing.T) {
		recorder, _ := a.do(t, http.MethodGet, "/api/v1/admin/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})
}

func TestPackageLifecycleOverHTTP(t *testing.T) {
	a := newApp(t)

	staff := a.accounts.AddAdmin("editor", "staff-secret", account.StatusActive)
	a.grant(rbac.GuardAdmin, staff.ID, rbac.RoleEditor)
	token := a.login(t, "/api/v1/admin", "editor", "staff-secret")

	recorder, body := a.do(t, http.MethodPost, "/api/v1/admin/packages", token, map[string]any{
		"name": "Gold", "price_cents": 9900, "duration_days": 30,
	})
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var created membership.Package
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, "gold", created.Slug)

	recorder, _ = a.do(t, http.MethodDelete, "/api/v1/admin/packages/"+created.ID, token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = a.do(t, http.MethodGet, "/api/v1/admin/packages/trashed", token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = a.do(t, http.MethodPost, "/api/v1/admin/packages/"+created.ID+"/restore", token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = a.do(t, http.MethodDelete, "/api/v1/admin/packages/"+created.ID+"/force", token, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code, "editors cannot force delete")

	recorder, _ = a.do(t, http.MethodGet, "/api/v1/admin/packages/export?format=csv", token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Header().Get("Content-Disposition"), "packages.csv")

	recorder, _ = a.do(t, http.MethodGet, "/api/v1/admin/packages/export?format=pdf", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	a := newApp(t)

	member := a.accounts.AddUser("bob", "member-secret", account.StatusActive)
	a.grant(rbac.GuardUser, member.ID, rbac.RoleMember)
	token := a.login(t, "/api/v1", "bob", "member-secret")

	recorder, _ := a.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = a.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder, _ = a.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, _ = a.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code, "logout never fails")
}

func TestProfilePasswordGoesThroughChangePassword(t *testing.T) {
	a := newApp(t)

	member := a.accounts.AddUser("cleo", "member-secret", account.StatusActive)
	a.grant(rbac.GuardUser, member.ID, rbac.RoleMember)
	token := a.login(t, "/api/v1", "cleo", "member-secret")

	recorder, body := a.do(t, http.MethodPatch, "/api/v1/profile", token, map[string]any{"password": "chosen-secret"})
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	require.NotNil(t, body.Errors)
	assert.Equal(t, "VALIDATION_ERROR", body.Errors.Code)

	recorder, _ = a.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"login": "cleo", "password": "chosen-secret"})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, _ = a.do(t, http.MethodPost, "/api/v1/auth/change-password", token, map[string]any{
		"current_password": "member-secret", "new_password": "chosen-secret",
	})
	assert.Equal(t, http.StatusOK, recorder.Code)
	a.login(t, "/api/v1", "cleo", "chosen-secret")
}
