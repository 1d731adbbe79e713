package papertrail

import "errors"

// Sentinel errors for the papertrail domain.
var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrBadRequest   = errors.New("bad request")
	ErrUpstream     = errors.New("upstream error")
	ErrUnauthorized = errors.New("unauthorized")
)
