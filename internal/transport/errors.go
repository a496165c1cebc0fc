package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"suitedash/internal/ratelimit"
)

// Error is returned for every failed request. StatusCode is zero when no
// response was received (network failure, timeout, cancellation).
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("%s %s: http 429: %s", e.Method, e.Path, ratelimit.Message)
	case e.StatusCode != 0:
		body := strings.TrimSpace(e.Body)
		if body == "" {
			body = http.StatusText(e.StatusCode)
		}
		return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, body)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a transport *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	if te, ok := AsError(err); ok {
		return te.StatusCode
	}
	return 0
}

// IsRateLimited reports whether err came from a 429 response.
func IsRateLimited(err error) bool {
	return ratelimit.IsRateLimited(StatusCode(err))
}

// IsNotFound reports whether err came from a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsNetwork reports whether err failed before any response arrived.
func IsNetwork(err error) bool {
	te, ok := AsError(err)
	return ok && te.StatusCode == 0
}
