package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"suitedash/internal/utils"
)

// SnapshotKey is the storage key of the last successful first page for a list.
func SnapshotKey(resource string) string {
	return "last_" + resource
}

// Snapshots persists last-known-good list pages. Unlike Store entries they
// never expire and are only replaced by a newer successful fetch.
type Snapshots[T any] struct {
	storage Storage
	key     string
	log     zerolog.Logger
}

// NewSnapshots creates a snapshot slot for resource.
func NewSnapshots[T any](storage Storage, resource string) *Snapshots[T] {
	return &Snapshots[T]{
		storage: storage,
		key:     SnapshotKey(resource),
		log:     utils.WithComponent("snapshot"),
	}
}

// Load returns the saved items, or false when none exist or they are unreadable.
func (s *Snapshots[T]) Load(ctx context.Context) ([]T, bool) {
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("key", s.key).Msg("failed to read snapshot")
		}
		return nil, false
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("discarding corrupt snapshot")
		return nil, false
	}
	return items, true
}

// Save replaces the snapshot. Failures are logged and otherwise ignored.
func (s *Snapshots[T]) Save(ctx context.Context, items []T) {
	payload, err := json.Marshal(items)
	if err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to encode snapshot")
		return
	}
	if err := s.storage.Set(ctx, s.key, string(payload)); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to write snapshot")
	}
}
