// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/middleware"
	requestutil "github.com/taibuivan/backoffice/internal/platform/request"
	"github.com/taibuivan/backoffice/internal/platform/respond"
)

// # Cookie Policy

// CookiePolicy decides how the session cookie of one guard is delivered.
type CookiePolicy struct {
	Name string

	// ProductionLike switches to Secure + SameSite=None.
	ProductionLike bool
}

// CookieName derives the per-guard cookie name so that both guards can hold
// a session in the same browser.
func CookieName(base string, guard rbac.Guard) string {
	if guard == rbac.GuardAdmin {
		return "admin_" + base
	}
	return base
}

func (policy CookiePolicy) cookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     policy.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   policy.ProductionLike,
		SameSite: http.SameSiteLaxMode,
	}
	if policy.ProductionLike {
		cookie.SameSite = http.SameSiteNoneMode
	}

	if value == "" {
		cookie.MaxAge = -1
	} else {
		cookie.Expires = expires
	}
	return cookie
}

// # Handler

// Handler implements the session endpoints of one guard.
type Handler struct {
	authService *Service
	guard       rbac.Guard
	cookies     CookiePolicy
}

// NewHandler constructs a new [Handler] for guard.
func NewHandler(service *Service, guard rbac.Guard, cookies CookiePolicy) *Handler {
	return &Handler{authService: service, guard: guard, cookies: cookies}
}

// Routes returns a [chi.Router] configured with the session routes.
//
// # Endpoints
//   - POST /login           : Authenticates and opens a session.
//   - POST /refresh         : Exchanges a session for a fresh one.
//   - POST /logout          : Ends the session (always succeeds).
//   - GET  /me              : Current principal and claim snapshot.
//   - POST /change-password : Replaces the caller's password.
//
// loginLimiter, when not nil, throttles the login endpoint. authenticate
// loads the session for the endpoints that need one; login, refresh and
// logout read the token themselves so a stale cookie never blocks them.
func (handler *Handler) Routes(loginLimiter, authenticate func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	login := chi.Chain()
	if loginLimiter != nil {
		login = chi.Chain(loginLimiter)
	}

	router.With(login...).Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)

	router.Group(func(r chi.Router) {
		if authenticate != nil {
			r.Use(authenticate)
		}
		r.Use(middleware.RequireGuard(handler.guard))
		r.Get("/me", handler.me)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

/*
Login authenticates a principal and establishes a session.

POST /login

Request:
  - Body: LoginInput (login, password, remember)

Response:
  - 200: access token, claim snapshot and principal; cookie set
  - 401: INVALID_CREDENTIALS for any credential or account-state mismatch
  - 422: missing fields
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input LoginInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	input.IPAddress = middleware.RealIP(request)
	input.UserAgent = request.UserAgent()

	session, err := handler.authService.Authenticate(request.Context(), handler.guard, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, handler.cookies.cookie(session.AccessToken, session.ExpiresAt))
	respond.OK(writer, "Login successful", sessionBody(session))
}

/*
Refresh issues a new session from the presented one.

POST /refresh

Description: The token is read from the Authorization header or the session
cookie. It may be expired as long as the refresh window is still open.

Response:
  - 200: new access token and re-derived snapshot; cookie replaced
  - 401: missing, invalid, terminated or unrefreshable session
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token, err := middleware.TokenFromRequest(request, handler.cookies.Name)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if token == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing session token"))
		return
	}

	session, err := handler.authService.Refresh(request.Context(), handler.guard, token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, handler.cookies.cookie(session.AccessToken, session.ExpiresAt))
	respond.OK(writer, "Session refreshed", sessionBody(session))
}

/*
Logout terminates the current session.

POST /logout

Response:
  - 200: always; the cookie is cleared whether or not invalidation succeeded
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if token, err := middleware.TokenFromRequest(request, handler.cookies.Name); err == nil && token != "" {
		handler.authService.Logout(request.Context(), token)
	}

	http.SetCookie(writer, handler.cookies.cookie("", time.Time{}))
	respond.OK(writer, "Logged out", nil)
}

func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.authService.Me(request.Context(), claims)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Session retrieved", map[string]any{
		FieldPrincipal:   profile,
		"guard":          claims.GuardType,
		FieldRoles:       claims.Roles,
		FieldPermissions: claims.Permissions,
		"level":          claims.Level,
		"remember":       claims.Remember,
		"expires_at":     claims.ExpiresAt.Time,
	})
}

func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input ChangePasswordInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), claims, input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.SetCookie(writer, handler.cookies.cookie("", time.Time{}))
	respond.OK(writer, "Password changed, please log in again", nil)
}

func sessionBody(session *LoginSession) map[string]any {
	return map[string]any{
		FieldAccessToken: session.AccessToken,
		FieldTokenType:   TokenType,
		FieldExpiresIn:   session.ExpiresIn,
		"expires_at":     session.ExpiresAt,
		"remember":       session.Remember,
		FieldPrincipal:   session.Principal,
		FieldRoles:       session.Roles,
		FieldPermissions: session.Permissions,
	}
}
