// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/backoffice/internal/platform/respond"
)

// readinessTimeout bounds the whole /ready probe.
const readinessTimeout = 3 * time.Second

// Check pings one dependency.
type Check func(ctx context.Context) error

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// Database pings the PostgreSQL pool.
	Database Check

	// Cache pings the Redis client holding the session denylist.
	Cache Check
}

type healthHandler struct {
	checks map[string]Check
	logger *slog.Logger
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	checks := map[string]Check{}
	if deps.Database != nil {
		checks["postgres"] = deps.Database
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache
	}

	handler := &healthHandler{checks: checks, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, "Service is alive", map[string]string{"status": "ok"})
}

// readiness handles GET /ready (Readiness probe). Checks run concurrently;
// every result is reported even when one fails.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([]checkResult, 0, len(handler.checks))
		ready   = true
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for name, check := range handler.checks {
		group.Go(func() error {
			result := checkResult{Name: name, IsOK: true}
			if err := check(groupCtx); err != nil {
				result.IsOK = false
				result.Error = err.Error()
				handler.logger.Error("readiness_check_failed", slog.String("dependency", name), slog.Any("error", err))
			}

			mu.Lock()
			results = append(results, result)
			ready = ready && result.IsOK
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	body := map[string]any{"status": "ready", "checks": results}
	if !ready {
		body["status"] = "degraded"
		respond.Status(writer, http.StatusServiceUnavailable, "Service is not ready", body)
		return
	}
	respond.OK(writer, "Service is ready", body)
}
