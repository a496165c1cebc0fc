// Package shutdown ties a command's lifetime to SIGINT/SIGTERM and runs
// registered cleanups when the command ends.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"suitedash/internal/utils"
)

// DefaultTimeout bounds the time Close waits for cleanups.
const DefaultTimeout = 5 * time.Second

// CleanupFunc releases one resource. ctx is cancelled when the cleanup
// timeout expires.
type CleanupFunc func(ctx context.Context) error

type cleanupEntry struct {
	name string
	fn   CleanupFunc
}

// Manager owns the command context and the cleanup stack.
type Manager struct {
	mu       sync.Mutex
	cleanups []cleanupEntry
	closed   bool

	ctx  context.Context
	stop context.CancelFunc
	once sync.Once
	err  error
	log  zerolog.Logger
}

// NewManager returns a manager whose Context is cancelled on the given
// signals, or on SIGINT and SIGTERM when none are given.
func NewManager(parent context.Context, signals ...os.Signal) *Manager {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(parent, signals...)
	return &Manager{
		ctx:  ctx,
		stop: stop,
		log:  utils.WithComponent("shutdown"),
	}
}

// Context is cancelled when a signal arrives or Close is called.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Interrupted reports whether the context was cancelled before Close.
func (m *Manager) Interrupted() bool {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	return !closed && m.ctx.Err() != nil
}

// Register adds a cleanup. Cleanups run in reverse registration order.
// Registering after Close runs fn immediately.
func (m *Manager) Register(name string, fn CleanupFunc) {
	m.mu.Lock()
	if !m.closed {
		m.cleanups = append(m.cleanups, cleanupEntry{name: name, fn: fn})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		m.log.Warn().Err(err).Str("cleanup", name).Msg("cleanup failed")
	}
}

// Close stops signal handling and runs every cleanup, last registered
// first, within timeout. Failures do not stop later cleanups; they are
// joined into the returned error. Only the first call has effect.
func (m *Manager) Close(timeout time.Duration) error {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		cleanups := m.cleanups
		m.cleanups = nil
		m.mu.Unlock()
		m.stop()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			var errs []error
			for i := len(cleanups) - 1; i >= 0; i-- {
				c := cleanups[i]
				if err := c.fn(ctx); err != nil {
					m.log.Warn().Err(err).Str("cleanup", c.name).Msg("cleanup failed")
					errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
				}
			}
			done <- errors.Join(errs...)
		}()

		select {
		case m.err = <-done:
		case <-ctx.Done():
			m.err = fmt.Errorf("cleanup timed out: %w", ctx.Err())
		}
	})
	return m.err
}
