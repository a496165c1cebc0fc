package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"suitedash/internal/cache"
)

// mustNewStorage creates an in-memory storage and registers cleanup
func mustNewStorage(t *testing.T) (*Storage, context.Context) {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, context.Background()
}

func TestGetMissingKey(t *testing.T) {
	s, ctx := mustNewStorage(t)

	_, err := s.Get(ctx, "contacts_p1_n20")
	if !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected cache.ErrNotFound, got %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	s, ctx := mustNewStorage(t)

	if err := s.Set(ctx, "contact_42", `{"id":42}`); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, err := s.Get(ctx, "contact_42")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != `{"id":42}` {
		t.Errorf("expected stored value, got %q", got)
	}
}

func TestSetOverwrites(t *testing.T) {
	s, ctx := mustNewStorage(t)

	_ = s.Set(ctx, "k", "one")
	if err := s.Set(ctx, "k", "two"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, _ := s.Get(ctx, "k")
	if got != "two" {
		t.Errorf("expected overwritten value 'two', got %q", got)
	}

	keys, _ := s.Keys(ctx)
	if len(keys) != 1 {
		t.Errorf("expected 1 key after overwrite, got %d", len(keys))
	}
}

func TestRemove(t *testing.T) {
	s, ctx := mustNewStorage(t)

	_ = s.Set(ctx, "k", "v")
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected key to be gone, got %v", err)
	}

	// Removing again is a no-op
	if err := s.Remove(ctx, "k"); err != nil {
		t.Errorf("Remove of missing key should not error: %v", err)
	}
}

func TestRemoveManyAndKeys(t *testing.T) {
	s, ctx := mustNewStorage(t)

	for i := 1; i <= 5; i++ {
		_ = s.Set(ctx, fmt.Sprintf("tasks_p%d_n20", i), "[]")
	}
	_ = s.Set(ctx, "last_tasks", "[]")

	if err := s.RemoveMany(ctx, []string{"tasks_p1_n20", "tasks_p3_n20", "missing"}); err != nil {
		t.Fatalf("RemoveMany error: %v", err)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	want := []string{"last_tasks", "tasks_p2_n20", "tasks_p4_n20", "tasks_p5_n20"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: expected %q, got %q", i, want[i], keys[i])
		}
	}

	if err := s.RemoveMany(ctx, nil); err != nil {
		t.Errorf("RemoveMany(nil) should be a no-op: %v", err)
	}
}

func TestRemoveManyBeyondBatchSize(t *testing.T) {
	s, ctx := mustNewStorage(t)

	n := removeBatchSize*2 + 37
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := fmt.Sprintf("contact_%d", i)
		if err := s.Set(ctx, k, "{}"); err != nil {
			t.Fatalf("Set error: %v", err)
		}
		keys = append(keys, k)
	}
	_ = s.Set(ctx, "last_contacts", "[]")

	if err := s.RemoveMany(ctx, keys); err != nil {
		t.Fatalf("RemoveMany error: %v", err)
	}

	got, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys error: %v", err)
	}
	if len(got) != 1 || got[0] != "last_contacts" {
		t.Errorf("expected only last_contacts to remain, got %d keys", len(got))
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	ctx := context.Background()

	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%s) error: %v", path, err)
	}
	_ = s.Set(ctx, "project_7", `{"id":7}`)
	_ = s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.Get(ctx, "project_7")
	if err != nil {
		t.Fatalf("Get after reopen error: %v", err)
	}
	if got != `{"id":7}` {
		t.Errorf("expected persisted value, got %q", got)
	}
}

// TestBacksCacheStore verifies the storage works under cache.Store with TTLs.
func TestBacksCacheStore(t *testing.T) {
	s, ctx := mustNewStorage(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := cache.New(s, cache.WithClock(func() time.Time { return now }))

	store.Put(ctx, "contacts_p1_n20", []byte(`[{"id":1}]`), cache.DefaultTTL)
	if _, ok := store.Get(ctx, "contacts_p1_n20"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(cache.DefaultTTL)
	if _, ok := store.Get(ctx, "contacts_p1_n20"); ok {
		t.Fatal("expected miss at expiry")
	}
	if _, err := s.Get(ctx, "contacts_p1_n20"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("expected expired row to be purged, got %v", err)
	}
}
