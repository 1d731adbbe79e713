package upstream

import (
	"fmt"
	"io"
	"net/http"

	papertrail "github.com/eugener/papertrail/internal"
)

// APIError represents an error response from an upstream API.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

// Error returns a formatted error string including service, status, and body.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.StatusCode, e.Body)
}

// HTTPStatus returns the upstream HTTP status code.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// Unwrap maps the status to a domain sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return papertrail.ErrNotFound
	case http.StatusTooManyRequests:
		return papertrail.ErrRateLimited
	case http.StatusBadRequest:
		return papertrail.ErrBadRequest
	default:
		return papertrail.ErrUpstream
	}
}

// ParseAPIError reads up to 4KB from the response body and returns an APIError.
func ParseAPIError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}
