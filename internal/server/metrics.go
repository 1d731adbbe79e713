package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eugener/papertrail/internal/telemetry"
)

// statusText holds pre-formatted status codes for metric labels.
var statusText [600]string

func init() {
	for i := range statusText {
		statusText[i] = strconv.Itoa(i)
	}
}

// metricsMiddleware records request count, duration and in-flight gauge.
func metricsMiddleware(m *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.ActiveRequests.Inc()
			defer m.ActiveRequests.Dec()
			start := time.Now()

			sw := acquireStatusWriter(w)
			next.ServeHTTP(sw, r)
			status := sw.status
			releaseStatusWriter(sw)

			pattern := routePattern(r)
			m.RequestsTotal.WithLabelValues(r.Method, pattern, statusText[status]).Inc()
			m.RequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

// routePattern returns the chi route pattern so label cardinality stays
// bounded; unmatched requests share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return "unmatched"
}
