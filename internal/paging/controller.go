// Package paging drives incremental, page-at-a-time loading of a resource
// list with a stale-while-revalidate first page.
package paging

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"suitedash/internal/metrics"
	"suitedash/internal/utils"
)

// DefaultPageSize is the number of items requested per page.
const DefaultPageSize = 20

// ErrSuperseded is returned when a response arrived after the controller
// was refreshed or unmounted and was therefore dropped.
var ErrSuperseded = errors.New("paging: response superseded")

// ErrNotMounted is returned by operations on an unmounted controller.
var ErrNotMounted = errors.New("paging: controller not mounted")

// Status is the controller's position in its state machine.
type Status int

const (
	Idle Status = iota
	LoadingInitial
	Ready
	LoadingMore
	Refreshing
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingInitial:
		return "loading"
	case Ready:
		return "ready"
	case LoadingMore:
		return "loading-more"
	case Refreshing:
		return "refreshing"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Lister fetches one page of items.
type Lister[T any] interface {
	List(ctx context.Context, page, pageSize int, useCache bool) ([]T, error)
}

// SnapshotStore persists the last successfully loaded first page.
type SnapshotStore[T any] interface {
	Load(ctx context.Context) ([]T, bool)
	Save(ctx context.Context, items []T)
}

// State is an immutable view of the list.
type State[T any] struct {
	Status Status
	Items  []T
	// Page is the last page confirmed by the network; zero when only
	// snapshot data has been shown.
	Page    int
	HasMore bool
	// Stale is set while Items come from the snapshot rather than the network.
	Stale bool
	Err   error
}

// IsLoadingInitial reports whether the first network load is outstanding.
func (s State[T]) IsLoadingInitial() bool { return s.Status == LoadingInitial }

// IsRefreshing reports whether a pull-to-refresh is outstanding.
func (s State[T]) IsRefreshing() bool { return s.Status == Refreshing }

// ShowFullError reports whether a view should replace the list with an
// error and retry action: a failure with nothing to show.
func (s State[T]) ShowFullError() bool {
	return s.Status == Failed && len(s.Items) == 0
}

// Controller is the per-screen list state machine. All methods are safe for
// concurrent use; responses are applied only if no Refresh or Unmount
// happened while they were in flight.
type Controller[T any] struct {
	lister   Lister[T]
	snaps    SnapshotStore[T]
	pageSize int
	resource string
	observer func(State[T])
	log      zerolog.Logger

	mu         sync.Mutex
	state      State[T]
	generation uint64
	mounted    bool
	inFlight   bool
}

// Option configures a Controller.
type Option[T any] func(*Controller[T])

// WithPageSize sets the page size.
func WithPageSize[T any](n int) Option[T] {
	return func(c *Controller[T]) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithSnapshots enables the stale first page on mount.
func WithSnapshots[T any](s SnapshotStore[T]) Option[T] {
	return func(c *Controller[T]) {
		c.snaps = s
	}
}

// WithObserver registers a callback run after every state change.
func WithObserver[T any](fn func(State[T])) Option[T] {
	return func(c *Controller[T]) {
		c.observer = fn
	}
}

// WithResourceName labels logs and metrics.
func WithResourceName[T any](name string) Option[T] {
	return func(c *Controller[T]) {
		c.resource = name
	}
}

// New creates an idle controller over lister.
func New[T any](lister Lister[T], opts ...Option[T]) *Controller[T] {
	c := &Controller[T]{
		lister:   lister,
		pageSize: DefaultPageSize,
		resource: "items",
		state:    State[T]{Status: Idle},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.log = utils.WithComponent("paging").With().Str("resource", c.resource).Logger()
	return c
}

// PageSize returns the configured page size.
func (c *Controller[T]) PageSize() int {
	return c.pageSize
}

// State returns a copy of the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() State[T] {
	s := c.state
	s.Items = append([]T(nil), c.state.Items...)
	return s
}

// update mutates state under the lock when gen is current, then notifies
// the observer outside the lock. It reports whether fn ran.
func (c *Controller[T]) update(gen uint64, fn func(s *State[T])) bool {
	c.mu.Lock()
	if !c.mounted || gen != c.generation {
		c.mu.Unlock()
		return false
	}
	fn(&c.state)
	s := c.snapshotLocked()
	c.mu.Unlock()

	if c.observer != nil {
		c.observer(s)
	}
	return true
}

// begin starts a fetch. When bump is set the generation advances so any
// outstanding response is dropped.
func (c *Controller[T]) begin(bump bool, status Status) uint64 {
	c.mu.Lock()
	if bump {
		c.generation++
	}
	gen := c.generation
	c.inFlight = true
	c.state.Status = status
	s := c.snapshotLocked()
	c.mu.Unlock()

	if c.observer != nil {
		c.observer(s)
	}
	return gen
}

// finish clears the in-flight flag for gen.
func (c *Controller[T]) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.inFlight = false
	}
}

func (c *Controller[T]) hasMore(n int) bool {
	return n >= c.pageSize
}

// Mount shows the saved first page, if any, then loads page 1 through the
// cache. On failure the saved items stay visible and the state is Failed.
// Mounting an already mounted controller does nothing.
func (c *Controller[T]) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return nil
	}
	c.mounted = true
	c.mu.Unlock()

	gen := c.begin(true, LoadingInitial)
	defer c.finish(gen)

	if c.snaps != nil {
		if items, ok := c.snaps.Load(ctx); ok && len(items) > 0 {
			c.update(gen, func(s *State[T]) {
				s.Items = items
				s.Stale = true
			})
			c.log.Debug().Int("items", len(items)).Msg("showing saved page")
		}
	}

	items, err := c.lister.List(ctx, 1, c.pageSize, true)
	metrics.RecordPageFetch(c.resource, "initial", err)
	return c.applyFirstPage(ctx, gen, items, err)
}

// Refresh reloads page 1 from the network, bypassing the cache. Any
// outstanding load is superseded. On failure the previous items stay.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}

	gen := c.begin(true, Refreshing)
	defer c.finish(gen)

	items, err := c.lister.List(ctx, 1, c.pageSize, false)
	metrics.RecordPageFetch(c.resource, "refresh", err)
	return c.applyFirstPage(ctx, gen, items, err)
}

func (c *Controller[T]) applyFirstPage(ctx context.Context, gen uint64, items []T, err error) error {
	if err != nil {
		applied := c.update(gen, func(s *State[T]) {
			s.Status = Failed
			s.Err = err
		})
		if !applied {
			return ErrSuperseded
		}
		c.log.Warn().Err(err).Msg("failed to load first page")
		return err
	}

	applied := c.update(gen, func(s *State[T]) {
		s.Status = Ready
		s.Items = append([]T(nil), items...)
		s.Page = 1
		s.HasMore = c.hasMore(len(items))
		s.Stale = false
		s.Err = nil
	})
	if !applied {
		return ErrSuperseded
	}
	if c.snaps != nil {
		c.snaps.Save(ctx, items)
	}
	return nil
}

// LoadMore fetches the next page and appends it. It is a no-op, returning
// false, unless the list is settled on network data with more pages
// available and nothing else in flight. A failed page leaves the list as
// it was, with Err set, so the next call retries the same page.
func (c *Controller[T]) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	st := c.state
	allowed := c.mounted && !c.inFlight && st.HasMore && st.Page > 0 &&
		(st.Status == Ready || (st.Status == Failed && len(st.Items) > 0))
	if !allowed {
		c.mu.Unlock()
		return false, nil
	}
	gen := c.generation
	next := st.Page + 1
	c.inFlight = true
	c.state.Status = LoadingMore
	s := c.snapshotLocked()
	c.mu.Unlock()

	if c.observer != nil {
		c.observer(s)
	}
	defer c.finish(gen)

	items, err := c.lister.List(ctx, next, c.pageSize, true)
	metrics.RecordPageFetch(c.resource, "more", err)

	if err != nil {
		if !c.update(gen, func(s *State[T]) {
			s.Status = Ready
			s.Err = err
		}) {
			return true, ErrSuperseded
		}
		c.log.Warn().Err(err).Int("page", next).Msg("failed to load next page")
		return true, err
	}

	if !c.update(gen, func(s *State[T]) {
		s.Status = Ready
		s.Items = append(s.Items, items...)
		s.Page = next
		s.HasMore = c.hasMore(len(items))
		s.Err = nil
	}) {
		return true, ErrSuperseded
	}
	return true, nil
}

// Unmount detaches the controller and discards its state. Responses still
// in flight are dropped.
func (c *Controller[T]) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	c.generation++
	c.inFlight = false
	c.state = State[T]{Status: Idle}
}

// Mounted reports whether the controller is attached.
func (c *Controller[T]) Mounted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mounted
}
