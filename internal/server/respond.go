package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/cache"
)

// jsonCT is assigned directly to the header map.
var jsonCT = []string{"application/json"}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	var e apiError
	e.Error.Message = msg
	e.Error.Type = errorType(status)
	writeJSON(w, status, e)
}

// writeErr maps err onto a status code and writes it.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.LogAttrs(r.Context(), slog.LevelError, "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeError(w, status, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, papertrail.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, papertrail.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, papertrail.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, papertrail.ErrBadRequest), errors.Is(err, cache.ErrInvalidPattern):
		return http.StatusBadRequest
	case errors.Is(err, papertrail.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorType(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found_error"
	case status == http.StatusUnauthorized:
		return "authentication_error"
	case status == http.StatusTooManyRequests:
		return "rate_limit_error"
	case status < http.StatusInternalServerError:
		return "invalid_request_error"
	default:
		return "upstream_error"
	}
}

// pathParam returns a URL parameter with percent-escapes decoded, so
// IDs containing "/" (DOIs) can be sent as %2F.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &queryError{name: name, value: s}
	}
	return n, nil
}

type queryError struct {
	name, value string
}

func (e *queryError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}

func (e *queryError) Unwrap() error { return papertrail.ErrBadRequest }
