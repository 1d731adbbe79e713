package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware starts a server span for every request.
func HTTPMiddleware(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, ServiceName)
}

// HTTPTransport wraps base so outgoing requests get client spans and carry
// the trace context upstream.
func HTTPTransport(base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(base)
}
