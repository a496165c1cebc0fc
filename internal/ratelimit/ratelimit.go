// Package ratelimit observes HTTP 429 responses from the SuiteDash API.
// It never retries: callers are told about the limit and decide what to do.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Message is shown to users whenever the API rejects a request with 429.
const Message = "Rate limit exceeded. Please try again later."

// Event describes a single rate-limited request.
type Event struct {
	Method string
	Path   string
	// RetryAfter is the server-suggested wait, or zero when absent.
	RetryAfter time.Duration
	At         time.Time
}

// String renders the event for logs.
func (e Event) String() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s %s rate limited (retry after %s)", e.Method, e.Path, e.RetryAfter)
	}
	return fmt.Sprintf("%s %s rate limited", e.Method, e.Path)
}

// Handler is notified of every rate-limited response.
type Handler func(Event)

// IsRateLimited reports whether status is HTTP 429.
func IsRateLimited(status int) bool {
	return status == http.StatusTooManyRequests
}

// NewEvent builds an Event from a 429 response's request line and headers.
func NewEvent(method, path string, header http.Header, now time.Time) Event {
	ev := Event{Method: method, Path: path, At: now}
	if header != nil {
		if d := ParseRetryAfter(header.Get("Retry-After"), now); d != nil {
			ev.RetryAfter = *d
		}
	}
	return ev
}

// ParseRetryAfter parses the Retry-After header value relative to now.
// It supports both seconds format (integer) and HTTP-date format.
// Returns nil if the value is invalid or empty.
func ParseRetryAfter(value string, now time.Time) *time.Duration {
	if value == "" {
		return nil
	}

	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return nil
		}
		d := time.Duration(seconds) * time.Second
		return &d
	}

	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return &d
	}

	return nil
}

// Stats tracks rate limit events for one API client.
type Stats struct {
	mu        sync.RWMutex
	count     int64
	lastEvent Event
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// Record records a rate limit event. It has the Handler signature.
func (s *Stats) Record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	s.lastEvent = ev
}

// RateLimitCount returns the total number of rate limit events.
func (s *Stats) RateLimitCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// LastEvent returns the most recent event and whether one was recorded.
func (s *Stats) LastEvent() (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEvent, s.count > 0
}

// Chain combines handlers, skipping nil entries.
func Chain(handlers ...Handler) Handler {
	return func(ev Event) {
		for _, h := range handlers {
			if h != nil {
				h(ev)
			}
		}
	}
}
