// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements session issuance for both guards.

A session is a signed token carrying a snapshot of the principal's roles and
permissions. The snapshot is re-derived only on login and refresh; the short
default lifetime bounds how stale it can get.

Architecture:

  - Service: Authenticate, Refresh, Logout, Verify, Me, ChangePassword.
  - SessionStore: Redis denylist of invalidated token ids.
  - Handler: per-guard HTTP endpoints with cookie delivery.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/internal/platform/validate"
	"github.com/taibuivan/backoffice/internal/users/account"
)

// # Contracts & Types

// GrantSource resolves the current roles and permissions of a principal.
type GrantSource interface {
	Grants(ctx context.Context, guard rbac.Guard, principalID string) (rbac.Grants, error)
}

// Service implements authentication use cases for every guard.
type Service struct {
	accounts  account.Store
	grants    GrantSource
	sessions  SessionStore
	tokens    *sec.TokenService
	lifetimes Lifetimes
	logger    *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	accounts account.Store,
	grants GrantSource,
	sessions SessionStore,
	tokens *sec.TokenService,
	lifetimes Lifetimes,
	logger *slog.Logger,
) *Service {
	return &Service{
		accounts:  accounts,
		grants:    grants,
		sessions:  sessions,
		tokens:    tokens,
		lifetimes: lifetimes,
		logger:    logger,
	}
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login     string `json:"login" validate:"required,max=255"`
	Password  string `json:"password" validate:"required,max=72"`
	Remember  bool   `json:"remember"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginSession represents an issued session.
type LoginSession struct {
	Principal   *account.Profile
	Guard       rbac.Guard
	AccessToken string
	ExpiresIn   int64
	ExpiresAt   time.Time
	Roles       []string
	Permissions []string
	Remember    bool
}

// # Authentication Flow

/*
Authenticate validates credentials and issues a session.

Description: Unknown logins, wrong passwords and principals that are not
active all yield the same InvalidCredentials error. Unknown logins still
pay for one bcrypt comparison.

Parameters:
  - ctx: context.Context
  - guard: rbac.Guard (selects the principal table)
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session
  - error: ValidationError, InvalidCredentials or internal failures
*/
func (service *Service) Authenticate(ctx context.Context, guard rbac.Guard, input LoginInput) (*LoginSession, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	profile, err := service.accounts.FindByLogin(ctx, guard, strings.TrimSpace(input.Login))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			sec.BurnPasswordCheck(input.Password)
			return nil, apperr.InvalidCredentials()
		}
		return nil, err
	}

	// Password first so inactive accounts cost the same as active ones
	if !sec.CheckPasswordHash(input.Password, profile.PasswordHash) || !profile.Active() {
		service.logger.Info("login_rejected",
			slog.String("guard", guard.String()),
			slog.String("principal_id", profile.ID),
			slog.String("ip", input.IPAddress),
		)
		return nil, apperr.InvalidCredentials()
	}

	grants, err := service.grants.Grants(ctx, guard, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_grants_failed: %w", err)
	}

	session, err := service.issue(guard, profile, grants, input.Remember, nil)
	if err != nil {
		return nil, err
	}

	record := account.LoginRecord{At: time.Now(), IPAddress: input.IPAddress, UserAgent: input.UserAgent}
	if err := service.accounts.RecordLogin(ctx, guard, profile.ID, record); err != nil {
		service.logger.Warn("login_record_failed",
			slog.String("guard", guard.String()),
			slog.String("principal_id", profile.ID),
			slog.Any("error", err),
		)
	}

	service.logger.Info("login_succeeded",
		slog.String("guard", guard.String()),
		slog.String("principal_id", profile.ID),
		slog.Bool("remember", input.Remember),
	)
	return session, nil
}

/*
Refresh exchanges a session token for a new one.

Description: The presented token may be past its expiry as long as the
session started less than the refresh lifetime ago. The snapshot is
re-derived from current grants and the presented token is invalidated.

Parameters:
  - ctx: context.Context
  - guard: rbac.Guard (the guard the token must belong to)
  - token: string

Returns:
  - *LoginSession: New session (same remember flag and start time)
  - error: Unauthorized or internal failures
*/
func (service *Service) Refresh(ctx context.Context, guard rbac.Guard, token string) (*LoginSession, error) {
	claims, err := service.tokens.ParseToken(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid session token")
	}

	if claims.GuardType != guard.String() {
		return nil, apperr.Unauthorized("Session belongs to another guard")
	}

	if !time.Now().Before(service.refreshDeadline(claims)) {
		return nil, apperr.Unauthorized("Session can no longer be refreshed, please log in again")
	}

	if err := service.ensureNotRevoked(ctx, claims); err != nil {
		return nil, err
	}

	profile, err := service.accounts.FindByID(ctx, guard, claims.PrincipalID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthorized("Account is no longer available")
		}
		return nil, err
	}
	if !profile.Active() {
		return nil, apperr.Unauthorized("Account is no longer active")
	}

	grants, err := service.grants.Grants(ctx, guard, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_grants_failed: %w", err)
	}

	// Rotate: the presented token must not be refreshable twice
	if err := service.revoke(ctx, claims); err != nil {
		return nil, fmt.Errorf("auth_service_rotate_failed: %w", err)
	}

	session, err := service.issue(guard, profile, grants, claims.Remember, claims.AuthTime)
	if err != nil {
		return nil, err
	}

	service.logger.Info("session_refreshed",
		slog.String("guard", guard.String()),
		slog.String("principal_id", profile.ID),
		slog.String("previous_token_id", claims.ID),
	)
	return session, nil
}

/*
Logout invalidates a session token.

Description: Best-effort. The caller is always told the session ended;
invalidation failures are only logged.

Parameters:
  - ctx: context.Context
  - token: string
*/
func (service *Service) Logout(ctx context.Context, token string) {
	claims, err := service.tokens.ParseToken(token)
	if err != nil {
		service.logger.Debug("logout_token_unparseable", slog.Any("error", err))
		return
	}

	if err := service.revoke(ctx, claims); err != nil {
		service.logger.Warn("logout_invalidation_failed",
			slog.String("guard", claims.GuardType),
			slog.String("principal_id", claims.PrincipalID),
			slog.String("token_id", claims.ID),
			slog.Any("error", err),
		)
		return
	}

	service.logger.Info("logout_succeeded",
		slog.String("guard", claims.GuardType),
		slog.String("principal_id", claims.PrincipalID),
	)
}

// Verify checks a presented token for the middleware: signature, expiry and
// the denylist. A denylist outage rejects the token.
func (service *Service) Verify(ctx context.Context, token string) (*sec.SessionClaims, error) {
	claims, err := service.tokens.VerifyToken(token)
	if err != nil {
		if errors.Is(err, sec.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Session expired")
		}
		return nil, apperr.Unauthorized("Invalid session token")
	}

	if _, err := rbac.ParseGuard(claims.GuardType); err != nil {
		return nil, apperr.Unauthorized("Invalid session token")
	}

	if err := service.ensureNotRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Me returns the principal behind a verified session.
func (service *Service) Me(ctx context.Context, claims *sec.SessionClaims) (*account.Profile, error) {
	profile, _, err := service.sessionPrincipal(ctx, claims)
	return profile, err
}

// sessionPrincipal loads the principal of a verified session together with
// the guard the session was issued in.
func (service *Service) sessionPrincipal(ctx context.Context, claims *sec.SessionClaims) (*account.Profile, rbac.Guard, error) {
	guard, err := rbac.ParseGuard(claims.GuardType)
	if err != nil {
		return nil, "", apperr.Unauthorized("Invalid session token")
	}

	profile, err := service.accounts.FindByID(ctx, guard, claims.PrincipalID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, "", apperr.Unauthorized("Account is no longer available")
		}
		return nil, "", err
	}
	return profile, guard, nil
}

// ChangePasswordInput is the payload of a credential change.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

/*
ChangePassword replaces the caller's own password and ends the session
it was made from.

Parameters:
  - ctx: context.Context
  - claims: *sec.SessionClaims (verified session)
  - input: ChangePasswordInput

Returns:
  - error: ValidationError, InvalidCredentials (wrong current password) or storage failures
*/
func (service *Service) ChangePassword(ctx context.Context, claims *sec.SessionClaims, input ChangePasswordInput) error {
	if err := validate.Struct(input); err != nil {
		return err
	}

	profile, guard, err := service.sessionPrincipal(ctx, claims)
	if err != nil {
		return err
	}
	if !sec.CheckPasswordHash(input.CurrentPassword, profile.PasswordHash) {
		return apperr.InvalidCredentials()
	}

	hashedPassword, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.accounts.UpdatePassword(ctx, guard, profile.ID, hashedPassword); err != nil {
		return err
	}

	if err := service.revoke(ctx, claims); err != nil {
		service.logger.Warn("password_change_invalidation_failed",
			slog.String("principal_id", profile.ID),
			slog.Any("error", err),
		)
	}

	service.logger.Info("password_changed", slog.String("guard", guard.String()), slog.String("principal_id", profile.ID))
	return nil
}

// # Helpers

func (service *Service) issue(guard rbac.Guard, profile *account.Profile, grants rbac.Grants, remember bool, authTime *jwt.NumericDate) (*LoginSession, error) {
	ttl := service.lifetimes.For(remember)

	token, claims, err := service.tokens.IssueToken(sec.SessionClaims{
		PrincipalID: profile.ID,
		Email:       profile.Email,
		Username:    profile.Username,
		GuardType:   guard.String(),
		Roles:       grants.RoleStrings(),
		Permissions: grants.PermissionStrings(),
		Remember:    remember,
		Level:       grants.Level,
		AuthTime:    authTime,
	}, time.Now(), ttl)
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_failed: %w", err)
	}

	return &LoginSession{
		Principal:   profile,
		Guard:       guard,
		AccessToken: token,
		ExpiresIn:   int64(ttl / time.Second),
		ExpiresAt:   claims.ExpiresAt.Time,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		Remember:    remember,
	}, nil
}

// refreshDeadline is the end of the window in which claims may be refreshed.
func (service *Service) refreshDeadline(claims *sec.SessionClaims) time.Time {
	start := claims.AuthTime
	if start == nil {
		start = claims.IssuedAt
	}
	if start == nil {
		return time.Time{}
	}
	return start.Add(service.lifetimes.Refresh)
}

// revoke denylists the token id for as long as it could be used.
func (service *Service) revoke(ctx context.Context, claims *sec.SessionClaims) error {
	until := service.refreshDeadline(claims)
	if claims.ExpiresAt != nil && claims.ExpiresAt.After(until) {
		until = claims.ExpiresAt.Time
	}
	return service.sessions.Revoke(ctx, claims.ID, time.Until(until))
}

func (service *Service) ensureNotRevoked(ctx context.Context, claims *sec.SessionClaims) error {
	revoked, err := service.sessions.IsRevoked(ctx, claims.ID)
	if err != nil {
		service.logger.Error("session_denylist_unavailable",
			slog.String("token_id", claims.ID),
			slog.Any("error", err),
		)
		return apperr.Unauthorized("Session could not be verified")
	}
	if revoked {
		return apperr.Unauthorized("Session has been terminated")
	}
	return nil
}
