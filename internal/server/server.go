// Package server implements the HTTP transport layer for papertrail serve mode.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eugener/papertrail/internal/app"
	"github.com/eugener/papertrail/internal/auth"
	"github.com/eugener/papertrail/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	App            *app.App
	ReadyCheck     ReadyChecker       // nil = always ready (for tests)
	Metrics        *telemetry.Metrics // nil = no request metrics
	MetricsHandler http.Handler       // nil = no /metrics endpoint
	Admin          *auth.TokenAuth    // nil = cache admin routes open
	Tracing        bool               // start a span per request
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	if deps.Tracing {
		r.Use(telemetry.HTTPMiddleware)
	}
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	// System endpoints
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/papers/search", s.handleSearch)
		r.Route("/papers/{id}", func(r chi.Router) {
			r.Get("/", s.handlePaper)
			r.Get("/citations", s.handleCitations)
			r.Get("/references", s.handleReferences)
			r.Get("/graph", s.handleGraph)
			r.Get("/report", s.handleReport)
			r.Get("/notebook", s.handleNotebook)
			r.With(s.requireAdmin).Delete("/cache", s.handleInvalidatePaper)
		})
		r.Post("/translate", s.handleTranslate)

		r.Route("/cache", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/stats", s.handleCacheStats)
			r.Delete("/keys/{key}", s.handleCacheDelete)
			r.Post("/clear", s.handleCacheClear)
		})
	})

	return r
}

type server struct {
	deps Deps
}
