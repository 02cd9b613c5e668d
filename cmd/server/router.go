package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tally/internal/platform/config"
	"tally/internal/platform/metrics"
	"tally/internal/platform/ratelimit"
	reconhandler "tally/internal/reconciliation/handler"
	shifthandler "tally/internal/shift/handler"
	"tally/internal/tenant"
	"tally/pkg/platform/httputil"
	"tally/pkg/platform/middleware/admin"
	"tally/pkg/platform/middleware/instrument"
	"tally/pkg/platform/middleware/request"
	"tally/pkg/platform/middleware/requesttime"
)

func newRouter(cfg config.Config, log *slog.Logger, a *app, m *metrics.Metrics) http.Handler {
	if cfg.Server.AdminToken == "" {
		log.Warn("ADMIN_TOKEN not set, admin endpoints are unauthenticated")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(instrument.NewMetrics(m.Registry()).Middleware)

	r.Get("/health", healthHandler(a))
	r.Handle("/metrics", m.Handler())

	limiter := ratelimit.NewLimiter(a.rateStore(), cfg.RateLimit.IngestPerWindow, cfg.RateLimit.Window, log)
	recon := reconhandler.New(a.reconciliation, log,
		reconhandler.WithIngestMiddleware(limiter.PerParam("ingest", "tenantID")),
	)
	shifts := shifthandler.New(a.shifts, log)
	directory := tenant.NewHandler(a.tenants, log)

	r.Route("/v1", func(r chi.Router) {
		recon.Register(r)
		shifts.Register(r)
		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(cfg.Server.AdminToken, log))
			directory.Register(r)
			recon.RegisterAdmin(r)
		})
	})
	return r
}

// healthHandler answers 200 while every configured backend is reachable.
func healthHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := a.ready(ctx)
		code := http.StatusOK
		for _, v := range checks {
			if strings.HasPrefix(v, "down") {
				code = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": checks})
	}
}
