// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the back office HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool, plus bun on the same pool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Sync the permission catalog.
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taibuivan/backoffice/internal/access/rbac"
	"github.com/taibuivan/backoffice/internal/access/roles"
	"github.com/taibuivan/backoffice/internal/api"
	"github.com/taibuivan/backoffice/internal/membership"
	"github.com/taibuivan/backoffice/internal/platform/config"
	"github.com/taibuivan/backoffice/internal/platform/constants"
	"github.com/taibuivan/backoffice/internal/platform/migration"
	pgstore "github.com/taibuivan/backoffice/internal/platform/postgres"
	redisstore "github.com/taibuivan/backoffice/internal/platform/redis"
	"github.com/taibuivan/backoffice/internal/platform/repository"
	"github.com/taibuivan/backoffice/internal/platform/sec"
	"github.com/taibuivan/backoffice/internal/users/account"
	"github.com/taibuivan/backoffice/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	isolation, err := repository.ParseIsolation(cfg.BulkIsolation)
	must(log, err, "parse bulk isolation")

	// Root context for startup, bounded so misconfiguration fails fast.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), constants.StartupTimeout)
	defer startupCancel()

	// Lives until shutdown; background workers stop with it.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	bunDB := pgstore.NewBunDB(pool)

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_failed", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Access Control ─────────────────────────────────────────────────
	paging := cfg.PaginationPolicy()
	rbacStore := rbac.NewPostgresStore(pool)
	roleService := roles.NewService(
		repository.New(repository.NewBunBackend(bunDB, rbac.RoleDescriptor), rbac.RoleDescriptor, paging),
		repository.New(repository.NewBunBackend(bunDB, rbac.PermissionDescriptor), rbac.PermissionDescriptor, paging),
		rbacStore,
		rbac.DefaultRegistry(),
		log,
	)
	must(log, roleService.SyncCatalog(startupCtx), "sync permission catalog")

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	tokens, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, cfg.JWTIssuer)
	must(log, err, "initialize jwt service")

	accountStore := account.NewPostgresStore(pool)
	userService := account.NewService(rbac.GuardUser,
		repository.New(repository.NewBunBackend(bunDB, account.UserDescriptor), account.UserDescriptor, paging),
		accountStore, roleService, isolation, log)
	adminService := account.NewService(rbac.GuardAdmin,
		repository.New(repository.NewBunBackend(bunDB, account.AdminDescriptor), account.AdminDescriptor, paging),
		accountStore, roleService, isolation, log)

	packageService := membership.NewService(
		repository.New(repository.NewBunBackend(bunDB, membership.Descriptor), membership.Descriptor, paging),
		membership.NewPostgresCounter(pool),
		isolation,
		log,
	)

	authService := auth.NewService(
		accountStore,
		roleService,
		auth.NewSessionStore(rdb),
		tokens,
		auth.Lifetimes{Session: cfg.SessionTTL, Remember: cfg.RememberTTL, Refresh: cfg.RefreshTTL},
		log,
	)

	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		Database: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		Cache:    func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	userCookies := auth.CookiePolicy{Name: auth.CookieName(cfg.SessionCookieName, rbac.GuardUser), ProductionLike: cfg.IsProductionLike()}
	adminCookies := auth.CookiePolicy{Name: auth.CookieName(cfg.SessionCookieName, rbac.GuardAdmin), ProductionLike: cfg.IsProductionLike()}

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		UserAuth:  auth.NewHandler(authService, rbac.GuardUser, userCookies),
		AdminAuth: auth.NewHandler(authService, rbac.GuardAdmin, adminCookies),
		Users:     account.NewHandler(userService, "User", paging),
		Admins:    account.NewHandler(adminService, "Admin", paging),
		Roles:     roles.NewHandler(roleService, paging),
		Packages:  membership.NewHandler(packageService, paging),
	}

	server := api.NewServer(appCtx, cfg, log, authService, handlers)

	// ── 9. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	appCancel()

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failed",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
