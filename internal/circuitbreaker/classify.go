package circuitbreaker

import (
	"context"
	"errors"
	"net/http"
	"os"
)

type httpStatusError interface {
	HTTPStatus() int
}

// ClassifyError returns how much err counts against the upstream:
//
//	nil, 4xx other than 429, caller cancellation -> 0
//	429                                          -> 0.5
//	5xx, transport errors                        -> 1.0
//	timeouts                                     -> 1.5
func ClassifyError(err error) float64 {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return 1.5
	case errors.Is(err, context.Canceled):
		return 0
	}

	var he httpStatusError
	if errors.As(err, &he) {
		return classifyStatus(he.HTTPStatus())
	}
	return 1.0
}

func classifyStatus(code int) float64 {
	switch {
	case code == http.StatusTooManyRequests:
		return 0.5
	case code >= 500:
		return 1.0
	default:
		return 0
	}
}
