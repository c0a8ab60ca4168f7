// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/access/rbac/rbactest"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/internal/users/account"
	"github.com/taibuivan/backoffice/internal/users/account/accounttest"
	"github.com/taibuivan/backoffice/internal/users/auth"
)

var signingKey = func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return key
}()

type harness struct {
	service  *auth.Service
	accounts *accounttest.Store
	rbac     *rbactest.Store
	redis    *miniredis.Miniredis
	tokens   *sec.TokenService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	rbacStore := rbactest.NewStore()
	require.NoError(t, rbacStore.UpsertCatalog(context.Background(), rbac.DefaultRegistry()))

	accounts := accounttest.NewStore()
	tokens := sec.NewTokenServiceFromKey(signingKey, "backoffice.test")

	return &harness{
		service: auth.NewService(accounts, rbacStore, auth.NewSessionStore(client), tokens,
			auth.DefaultLifetimes(), slog.New(slog.NewTextHandler(io.Discard, nil))),
		accounts: accounts,
		rbac:     rbacStore,
		redis:    server,
		tokens:   tokens,
	}
}

func login(username, password string, remember bool) auth.LoginInput {
	return auth.LoginInput{Login: username, Password: password, Remember: remember, IPAddress: "203.0.113.7", UserAgent: "test-agent"}
}

func TestAuthenticate_RememberSelectsLongerLifetime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.accounts.AddUser("alice", "correct-horse", account.StatusActive)

	short, err := h.service.Authenticate(ctx, rbac.GuardUser, login("alice", "correct-horse", false))
	require.NoError(t, err)
	assert.Equal(t, int64(auth.DefaultSessionTTL/time.Second), short.ExpiresIn)
	assert.False(t, short.Remember)

	long, err := h.service.Authenticate(ctx, rbac.GuardUser, login("alice", "correct-horse", true))
	require.NoError(t, err)
	assert.Equal(t, int64(auth.DefaultRememberTTL/time.Second), long.ExpiresIn)
	assert.True(t, long.Remember)

	assert.Greater(t, long.ExpiresIn, short.ExpiresIn)
	assert.True(t, long.ExpiresAt.After(short.ExpiresAt))
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.accounts.AddUser("active", "correct-horse", account.StatusActive)
	h.accounts.AddUser("dormant", "correct-horse", account.StatusInactive)
	h.accounts.AddUser("banned", "correct-horse", account.StatusSuspended)

	attempts := map[string]auth.LoginInput{
		"unknown login":  login("nobody", "correct-horse", false),
		"wrong password": login("active", "battery-staple", false),
		"inactive":       login("dormant", "correct-horse", false),
		"suspended":      login("banned", "correct-horse", false),
	}

	reference := apperr.InvalidCredentials()
	for name, input := range attempts {
		t.Run(name, func(t *testing.T) {
			_, err := h.service.Authenticate(ctx, rbac.GuardUser, input)
			require.Error(t, err)

			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, reference.Code, appErr.Code)
			assert.Equal(t, reference.Message, appErr.Message)
			assert.Equal(t, reference.HTTPStatus, appErr.HTTPStatus)
		})
	}
}

func TestAuthenticate_GuardsAreDisjoint(t *testing.T) {
	h := newHarness(t)
	h.accounts.AddAdmin("root", "correct-horse", account.StatusActive)

	_, err := h.service.Authenticate(context.Background(), rbac.GuardUser, login("root", "correct-horse", false))
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))

	session, err := h.service.Authenticate(context.Background(), rbac.GuardAdmin, login("ROOT@example.com", "correct-horse", false))
	require.NoError(t, err)
	assert.Equal(t, rbac.GuardAdmin, session.Guard)
}

func TestAuthenticate_ClaimSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	admin := h.accounts.AddAdmin("editor", "correct-horse", account.StatusActive)
	editor, ok := h.rbac.RoleByName(rbac.GuardAdmin, rbac.RoleEditor)
	require.True(t, ok)
	h.rbac.Assign(rbac.GuardAdmin, admin.ID, editor)

	session, err := h.service.Authenticate(ctx, rbac.GuardAdmin, login("editor", "correct-horse", false))
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, session.Roles)
	assert.Contains(t, session.Permissions, "packages.update")
	assert.NotContains(t, session.Permissions, "roles.update")

	claims, err := h.service.Verify(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.PrincipalID)
	assert.Equal(t, "admin", claims.GuardType)
	assert.Equal(t, "editor@example.com", claims.Email)
	assert.Equal(t, editor.Level, claims.Level)
	assert.False(t, claims.Remember)
}

func TestAuthenticate_RecordsLogin(t *testing.T) {
	h := newHarness(t)
	user := h.accounts.AddUser("bob", "correct-horse", account.StatusActive)

	_, err := h.service.Authenticate(context.Background(), rbac.GuardUser, login("bob", "correct-horse", false))
	require.NoError(t, err)

	record, ok := h.accounts.LastLogin(rbac.GuardUser, user.ID)
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7", record.IPAddress)
	assert.Equal(t, "test-agent", record.UserAgent)
	assert.WithinDuration(t, time.Now(), record.At, time.Minute)
}

func TestAuthenticate_RecordFailureIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.accounts.AddUser("carol", "correct-horse", account.StatusActive)
	h.accounts.FailRecord = errors.New("disk full")

	session, err := h.service.Authenticate(context.Background(), rbac.GuardUser, login("carol", "correct-horse", false))
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
}

func TestAuthenticate_RejectsEmptyPayload(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Authenticate(context.Background(), rbac.GuardUser, auth.LoginInput{})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestLogout_InvalidatesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.accounts.AddUser("dave", "correct-horse", account.StatusActive)

	session, err := h.service.Authenticate(ctx, rbac.GuardUser, login("dave", "correct-horse", false))
	require.NoError(t, err)

	_, err = h.service.Verify(ctx, session.AccessToken)
	require.NoError(t, err)

	h.service.Logout(ctx, session.AccessToken)

	_, err = h.service.Verify(ctx, session.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = h.service.Refresh(ctx, rbac.GuardUser, session.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	// The denylist entry outlives the token by the refresh window.
	claims, err := h.tokens.ParseToken(session.AccessToken)
	require.NoError(t, err)
	assert.Greater(t, h.redis.TTL("auth:revoked:"+claims.ID), auth.DefaultSessionTTL)
}

func TestLogout_NeverFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.accounts.AddUser("erin", "correct-horse", account.StatusActive)

	session, err := h.service.Authenticate(ctx, rbac.GuardUser, login("erin", "correct-horse", false))
	require.NoError(t, err)

	h.redis.Close()

	assert.NotPanics(t, func() {
		h.service.Logout(ctx, session.AccessToken)
		h.service.Logout(ctx, "not-a-token")
	})
}

func TestVerify_FailsClosedWithoutDenylist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.accounts.AddUser("frank", "correct-horse", account.StatusActive)

	session, err := h.service.Authenticate(ctx, rbac.GuardUser, login("frank", "correct-horse", false))
	require.NoError(t, err)

	h.redis.Close()

	_, err = h.service.Verify(ctx, session.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestVerify_RejectsExpiredAndForeignTokens(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	expired, _, err := h.tokens.IssueToken(sec.SessionClaims{PrincipalID: "p", GuardType: "user"}, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = h.service.Verify(ctx, expired)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged, _, err := sec.NewTokenServiceFromKey(otherKey, "backoffice.test").IssueToken(sec.SessionClaims{PrincipalID: "p", GuardType: "user"}, time.Now(), time.Hour)
	require.NoError(t, err)
	_, err = h.service.Verify(ctx, forged)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestRefresh_RotatesAndRederivesSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	admin := h.accounts.AddAdmin("grace", "correct-horse", account.StatusActive)
	first, err := h.service.Authenticate(ctx, rbac.GuardAdmin, login("grace", "correct-horse", true))
	require.NoError(t, err)
	assert.Empty(t, first.Roles)

	support, ok := h.rbac.RoleByName(rbac.GuardAdmin, rbac.RoleSupport)
	require.True(t, ok)
	h.rbac.Assign(rbac.GuardAdmin, admin.ID, support)

	second, err := h.service.Refresh(ctx, rbac.GuardAdmin, first.AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	assert.Equal(t, []string{"support"}, second.Roles)
	assert.True(t, second.Remember, "remember is kept")
	assert.Equal(t, int64(auth.DefaultRememberTTL/time.Second), second.ExpiresIn)

	firstClaims, err := h.tokens.ParseToken(first.AccessToken)
	require.NoError(t, err)
	secondClaims, err := h.tokens.ParseToken(second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, firstClaims.AuthTime.Unix(), secondClaims.AuthTime.Unix(), "session start is kept")

	_, err = h.service.Refresh(ctx, rbac.GuardAdmin, first.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized), "a token refreshes once")

	_, err = h.service.Verify(ctx, second.AccessToken)
	assert.NoError(t, err)
}

func TestRefresh_AcceptsExpiredTokenInsideWindow(t *testing.T) {
	h := newHarness(t)
	user := h.accounts.AddUser("heidi", "correct-horse", account.StatusActive)

	stale, _, err := h.tokens.IssueToken(sec.SessionClaims{PrincipalID: user.ID, GuardType: "user"}, time.Now().Add(-3*time.Hour), time.Hour)
	require.NoError(t, err)

	session, err := h.service.Refresh(context.Background(), rbac.GuardUser, stale)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.Principal.ID)
}

func TestRefresh_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	user := h.accounts.AddUser("ivan", "correct-horse", account.StatusActive)
	dormant := h.accounts.AddUser("judy", "correct-horse", account.StatusInactive)

	windowClosed, _, err := h.tokens.IssueToken(sec.SessionClaims{PrincipalID: user.ID, GuardType: "user"},
		time.Now().Add(-auth.DefaultRefreshTTL-time.Hour), time.Hour)
	require.NoError(t, err)

	inactive, _, err := h.tokens.IssueToken(sec.SessionClaims{PrincipalID: dormant.ID, GuardType: "user"}, time.Now(), time.Hour)
	require.NoError(t, err)

	foreignGuard, _, err := h.tokens.IssueToken(sec.SessionClaims{PrincipalID: user.ID, GuardType: "user"}, time.Now(), time.Hour)
	require.NoError(t, err)

	cases := map[string]struct {
		guard rbac.Guard
		token string
	}{
		"garbage":        {rbac.GuardUser, "garbage"},
		"window closed":  {rbac.GuardUser, windowClosed},
		"inactive":       {rbac.GuardUser, inactive},
		"other guard":    {rbac.GuardAdmin, foreignGuard},
		"unknown person": {rbac.GuardAdmin, mustIssue(t, h.tokens, "ghost", "admin")},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.service.Refresh(ctx, tc.guard, tc.token)
			assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized), "got %v", err)
		})
	}
}

func mustIssue(t *testing.T, tokens *sec.TokenService, principalID, guard string) string {
	t.Helper()
	token, _, err := tokens.IssueToken(sec.SessionClaims{PrincipalID: principalID, GuardType: guard}, time.Now(), time.Hour)
	require.NoError(t, err)
	return token
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := h.accounts.AddUser("kate", "correct-horse", account.StatusActive)

	session, err := h.service.Authenticate(ctx, rbac.GuardUser, login("kate", "correct-horse", false))
	require.NoError(t, err)
	claims, err := h.service.Verify(ctx, session.AccessToken)
	require.NoError(t, err)

	profile, err := h.service.Me(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.accounts.AddUser("liam", "old-password", account.StatusActive)

	session, err := h.service.Authenticate(ctx, rbac.GuardUser, login("liam", "old-password", false))
	require.NoError(t, err)
	claims, err := h.service.Verify(ctx, session.AccessToken)
	require.NoError(t, err)

	err = h.service.ChangePassword(ctx, claims, auth.ChangePasswordInput{CurrentPassword: "wrong-password", NewPassword: "new-password"})
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))

	err = h.service.ChangePassword(ctx, claims, auth.ChangePasswordInput{CurrentPassword: "old-password", NewPassword: "old-password"})
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation), "must differ")

	require.NoError(t, h.service.ChangePassword(ctx, claims, auth.ChangePasswordInput{CurrentPassword: "old-password", NewPassword: "new-password"}))

	_, err = h.service.Verify(ctx, session.AccessToken)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized), "session ended")

	_, err = h.service.Authenticate(ctx, rbac.GuardUser, login("liam", "old-password", false))
	assert.True(t, apperr.HasCode(err, apperr.CodeInvalidCredentials))
	_, err = h.service.Authenticate(ctx, rbac.GuardUser, login("liam", "new-password", false))
	assert.NoError(t, err)
}

func TestChangePassword_RejectsForeignGuardClaims(t *testing.T) {
	h := newHarness(t)
	user := h.accounts.AddUser("mia", "old-password", account.StatusActive)

	claims := &sec.SessionClaims{PrincipalID: user.ID, GuardType: "partner"}
	err := h.service.ChangePassword(context.Background(), claims, auth.ChangePasswordInput{CurrentPassword: "old-password", NewPassword: "new-password"})
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	stored, err := h.accounts.FindByID(context.Background(), rbac.GuardUser, user.ID)
	require.NoError(t, err)
	assert.True(t, sec.CheckPasswordHash("old-password", stored.PasswordHash))
}
