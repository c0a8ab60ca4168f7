// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Each guard gets its own route tree and session cookie, so a browser may
    hold a member session and a staff session at the same time.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/access/roles"
	"github.com/taibuivan/backoffice/internal/membership"
	"github.com/taibuivan/backoffice/internal/platform/apperr"
	"github.com/taibuivan/backoffice/internal/platform/config"
	"github.com/taibuivan/backoffice/internal/platform/constants"
	"github.com/taibuivan/backoffice/internal/platform/middleware"
	"github.com/taibuivan/backoffice/internal/platform/respond"
	"github.com/taibuivan/backoffice/internal/users/account"
	"github.com/taibuivan/backoffice/internal/users/auth"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler; always returns 200 if the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler; returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// UserAuth and AdminAuth serve the session endpoints of each guard.
	UserAuth  *auth.Handler
	AdminAuth *auth.Handler

	// Users and Admins manage the principals of each guard.
	Users  *account.Handler[*account.User]
	Admins *account.Handler[*account.Admin]

	// Roles manages roles and permissions of both guards.
	Roles *roles.Handler

	// Packages manages the membership package catalog.
	Packages *membership.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.PanicRecovery)
	r.Use(middleware.ErrorExposure(!cfg.IsProductionLike()))
	r.Use(middleware.SecureHeaders(cfg.IsProductionLike()))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.CORS(cfg, cfg.AllowedOriginSuffix))
	r.Use(chimw.CleanPath)

	r.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, apperr.NotFound("Route"))
	})

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	userCookie := auth.CookieName(cfg.SessionCookieName, rbac.GuardUser)
	adminCookie := auth.CookieName(cfg.SessionCookieName, rbac.GuardAdmin)

	// Login throttle per client IP, shared by both guards
	loginLimiter := httprate.Limit(
		cfg.LoginRateLimit,
		constants.LoginRateWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(writer http.ResponseWriter, request *http.Request) {
			respond.Error(writer, request, apperr.RateLimited(int(constants.LoginRateWindow.Seconds())))
		}),
	)

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {

		// Member realm
		api.Mount("/auth", h.UserAuth.Routes(loginLimiter, middleware.Authenticate(verifier, userCookie)))

		api.Group(func(member chi.Router) {
			member.Use(middleware.Authenticate(verifier, userCookie))
			member.Use(middleware.RequireGuard(rbac.GuardUser))

			member.Route("/profile", h.Users.RegisterProfileRoutes)
			member.Route("/packages", h.Packages.RegisterCatalogRoutes)
		})

		// Staff realm
		api.Route("/admin", func(admin chi.Router) {
			admin.Mount("/auth", h.AdminAuth.Routes(loginLimiter, middleware.Authenticate(verifier, adminCookie)))

			admin.Group(func(staff chi.Router) {
				staff.Use(middleware.Authenticate(verifier, adminCookie))
				staff.Use(middleware.RequireGuard(rbac.GuardAdmin))

				staff.Route("/profile", h.Admins.RegisterProfileRoutes)
				staff.Route("/users", h.Users.RegisterRoutes)
				staff.Route("/admins", h.Admins.RegisterRoutes)
				staff.Route("/packages", h.Packages.RegisterRoutes)
				h.Roles.RegisterRoutes(staff)
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
