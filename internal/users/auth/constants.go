// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Session Lifetimes

const (
	// DefaultSessionTTL is the lifetime of a session opened without "remember me".
	DefaultSessionTTL = 1 * time.Hour

	// DefaultRememberTTL is the lifetime of a remembered session.
	DefaultRememberTTL = 30 * 24 * time.Hour

	// DefaultRefreshTTL bounds how long after the original login a session
	// may still be refreshed without presenting credentials again.
	DefaultRefreshTTL = 60 * 24 * time.Hour

	// TokenType is advertised to clients alongside the access token.
	TokenType = "Bearer"
)

// Lifetimes is the TTL policy of issued sessions.
type Lifetimes struct {
	Session  time.Duration
	Remember time.Duration
	Refresh  time.Duration
}

// DefaultLifetimes returns the built-in TTL policy.
func DefaultLifetimes() Lifetimes {
	return Lifetimes{Session: DefaultSessionTTL, Remember: DefaultRememberTTL, Refresh: DefaultRefreshTTL}
}

// For selects the session lifetime matching the remember flag.
func (l Lifetimes) For(remember bool) time.Duration {
	if remember {
		return l.Remember
	}
	return l.Session
}

// # Response Fields

const (
	FieldLogin       = "login"
	FieldPassword    = "password"
	FieldAccessToken = "access_token"
	FieldTokenType   = "token_type"
	FieldExpiresIn   = "expires_in"
	FieldPrincipal   = "principal"
	FieldRoles       = "roles"
	FieldPermissions = "permissions"
)
