// SPDX-License-Identifier: MIT

package github

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound     = errors.New("github: resource not found")
	ErrUnauthorized = errors.New("github: authentication failed or access forbidden")
	ErrRateLimited  = errors.New("github: rate limit exhausted")
	ErrUpstream     = errors.New("github: upstream error (5xx)")
	ErrBadResponse  = errors.New("github: invalid response format or malformed data")
	ErrTimeout      = errors.New("github: request timed out")
)

// APIError is a rich error type that wraps the sentinel errors with context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("github: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}
