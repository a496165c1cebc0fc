// Package session tracks whether the configured credentials reach the API
// and implements the app-wide "refresh data" action.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"suitedash/internal/utils"
)

// Client is the part of the resource client a session needs.
type Client interface {
	CheckAuth(ctx context.Context) error
	ClearCache(ctx context.Context) (int, bool)
}

// Status is a point-in-time view of the session.
type Status struct {
	Loading       bool
	Authenticated bool
	Err           error
}

// Session owns the authentication status for one client.
type Session struct {
	client Client
	log    zerolog.Logger

	mu     sync.RWMutex
	status Status
}

// New creates a session. Call Start to probe the API.
func New(client Client) *Session {
	return &Session{
		client: client,
		log:    utils.WithComponent("session"),
		status: Status{Loading: true},
	}
}

// Status returns the current status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) set(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Start probes the credentials. The returned error is an AuthError from the
// client and is also kept in Status.
func (s *Session) Start(ctx context.Context) error {
	s.set(Status{Loading: true})
	err := s.client.CheckAuth(ctx)
	s.set(Status{Authenticated: err == nil, Err: err})
	if err != nil {
		s.log.Warn().Err(err).Msg("authentication check failed")
	}
	return err
}

// RefreshData clears every cached response and probes the credentials
// again. A failed cache sweep is logged and does not stop the probe.
func (s *Session) RefreshData(ctx context.Context) (int, error) {
	n, ok := s.client.ClearCache(ctx)
	if !ok {
		s.log.Warn().Msg("cache clear incomplete")
	}
	return n, s.Start(ctx)
}
