// Package cache provides the time-boxed response cache used by the resource
// client, backed by any durable string key-value Storage.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"suitedash/internal/metrics"
	"suitedash/internal/utils"
)

// ErrNotFound is returned by Storage implementations for absent keys.
var ErrNotFound = errors.New("cache: key not found")

// DefaultTTL is the lifetime of cached API responses.
const DefaultTTL = 10 * time.Minute

// Storage is the durable string-keyed, string-valued store the cache persists to.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	RemoveMany(ctx context.Context, keys []string) error
	Keys(ctx context.Context) ([]string, error)
}

// Entry is the persisted form of a cached value. Expiry is in Unix milliseconds.
type Entry struct {
	Data   json.RawMessage `json:"data"`
	Expiry int64           `json:"expiry"`
}

// Valid reports whether the entry is still fresh at now.
func (e Entry) Valid(now time.Time) bool {
	return now.UnixMilli() < e.Expiry
}

// Store is a TTL cache over Storage. Storage failures never reach callers:
// failed reads are misses and failed writes are dropped.
type Store struct {
	storage Storage
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger overrides the store logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store persisting to storage.
func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		now:     time.Now,
		log:     utils.WithComponent("cache"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Storage returns the underlying durable storage.
func (s *Store) Storage() Storage {
	return s.storage
}

// Put stores value under key until now+ttl, replacing any prior entry.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	entry := Entry{
		Data:   json.RawMessage(value),
		Expiry: s.now().Add(ttl).UnixMilli(),
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("error caching data")
		metrics.RecordCacheOperation("put", metrics.ResultError)
		return
	}
	if err := s.storage.Set(ctx, key, string(payload)); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("error caching data")
		metrics.RecordCacheOperation("put", metrics.ResultError)
		return
	}
	metrics.RecordCacheOperation("put", metrics.ResultOK)
}

// Get returns the cached value for key. Expired entries are removed and
// reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordCacheOperation("get", metrics.ResultMiss)
		} else {
			s.log.Error().Err(err).Str("key", key).Msg("error retrieving cached data")
			metrics.RecordCacheOperation("get", metrics.ResultError)
		}
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("error retrieving cached data")
		metrics.RecordCacheOperation("get", metrics.ResultError)
		return nil, false
	}

	if !entry.Valid(s.now()) {
		if err := s.storage.Remove(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to purge expired entry")
		}
		metrics.RecordCacheOperation("get", metrics.ResultExpired)
		return nil, false
	}

	metrics.RecordCacheOperation("get", metrics.ResultHit)
	return []byte(entry.Data), true
}

// Remove deletes key. Absent keys are not an error.
func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.storage.Remove(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.Error().Err(err).Str("key", key).Msg("error removing cached data")
		metrics.RecordCacheOperation("remove", metrics.ResultError)
	}
}

// RemoveMatching deletes every stored key accepted by match and returns how
// many keys were removed. It returns false when the sweep could not complete.
func (s *Store) RemoveMatching(ctx context.Context, match func(key string) bool) (int, bool) {
	keys, err := s.storage.Keys(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("error clearing cache")
		metrics.RecordCacheOperation("clear", metrics.ResultError)
		return 0, false
	}

	var doomed []string
	for _, k := range keys {
		if match(k) {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return 0, true
	}

	if err := s.storage.RemoveMany(ctx, doomed); err != nil {
		s.log.Error().Err(err).Int("keys", len(doomed)).Msg("error clearing cache")
		metrics.RecordCacheOperation("clear", metrics.ResultError)
		return 0, false
	}
	metrics.RecordCacheOperation("clear", metrics.ResultOK)
	return len(doomed), true
}
