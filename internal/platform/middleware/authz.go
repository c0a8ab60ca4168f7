// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/constants"
	"github.com/taibuivan/backoffice/internal/platform/ctxutil"
	"github.com/taibuivan/backoffice/internal/platform/respond"
	"github.com/taibuivan/backoffice/internal/platform/sec"
)

// TokenVerifier checks a presented session token (signature, expiry, denylist).
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*sec.SessionClaims, error)
}

// TokenFromRequest reads the session token from the Authorization header,
// falling back to the named cookie. An empty token means anonymous.
func TokenFromRequest(request *http.Request, cookieName string) (string, error) {
	if header := request.Header.Get(constants.HeaderAuthorization); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			return "", apperr.Unauthorized("Invalid authorization format")
		}
		return strings.TrimSpace(token), nil
	}

	if cookieName == "" {
		return "", nil
	}
	cookie, err := request.Cookie(cookieName)
	if err != nil {
		return "", nil
	}
	return cookie.Value, nil
}

// Authenticate verifies the session token, if any, and stores its claims in
// the request context.
//
// # Flow
//  1. Read 'Authorization: Bearer <token>' or the guard's session cookie.
//  2. If absent, the request proceeds as anonymous.
//  3. If present, verify via [TokenVerifier]; failure aborts with 401.
//  4. Inject the claims and enrich the request logger.
func Authenticate(verifier TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, err := TokenFromRequest(request, cookieName)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			claims, err := verifier.Verify(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			ctx := ctxutil.WithSession(request.Context(), claims)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(
				slog.String("user_id", claims.PrincipalID),
				slog.String("guard", claims.GuardType),
			))
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
// Must be registered AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetSession(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireGuard blocks requests whose session belongs to another guard.
// It implies [RequireAuth].
func RequireGuard(guard rbac.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetSession(request.Context())
			if claims == nil {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}
			if claims.GuardType != guard.String() {
				respond.Error(writer, request, apperr.Forbidden("This area requires a "+guard.String()+" session"))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
