package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitedash/backend"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStorage returns err from every call.
type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string) (string, error) { return "", f.err }
func (f failingStorage) Set(context.Context, string, string) error   { return f.err }
func (f failingStorage) Remove(context.Context, string) error        { return f.err }
func (f failingStorage) RemoveMany(context.Context, []string) error  { return f.err }
func (f failingStorage) Keys(context.Context) ([]string, error)      { return nil, f.err }

// =============================================================================
// Put / Get
// =============================================================================

func TestPutThenGetWithinTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := New(NewMemoryStorage(), WithClock(clock.Now))

	store.Put(ctx, "contacts_p1_n20", []byte(`[{"id":1}]`), DefaultTTL)

	clock.Advance(9 * time.Minute)
	got, ok := store.Get(ctx, "contacts_p1_n20")
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(got))
}

func TestGetAtExpiryIsMissAndPurges(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mem := NewMemoryStorage()
	store := New(mem, WithClock(clock.Now))

	store.Put(ctx, "contact_42", []byte(`{"id":42}`), 10*time.Minute)
	clock.Advance(10 * time.Minute)

	_, ok := store.Get(ctx, "contact_42")
	assert.False(t, ok)

	_, err := mem.Get(ctx, "contact_42")
	assert.ErrorIs(t, err, ErrNotFound, "expired entry should be removed")
}

func TestGetMissingKey(t *testing.T) {
	store := New(NewMemoryStorage())
	_, ok := store.Get(context.Background(), "nope")
	assert.False(t, ok)
}

func TestPutOverwritesAndResetsExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := New(NewMemoryStorage(), WithClock(clock.Now))

	store.Put(ctx, "k", []byte(`1`), time.Minute)
	clock.Advance(50 * time.Second)
	store.Put(ctx, "k", []byte(`2`), time.Minute)
	clock.Advance(50 * time.Second)

	got, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "2", string(got))
}

func TestCorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()
	require.NoError(t, mem.Set(ctx, "k", "not json"))

	store := New(mem)
	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestStoredEntryFormat(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mem := NewMemoryStorage()
	store := New(mem, WithClock(clock.Now))

	store.Put(ctx, "k", []byte(`{"a":1}`), time.Second)

	raw, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	want := `{"data":{"a":1},"expiry":` + strconv.FormatInt(clock.Now().Add(time.Second).UnixMilli(), 10) + `}`
	assert.JSONEq(t, want, raw)
}

// =============================================================================
// Storage failures
// =============================================================================

func TestStorageFailuresAreAbsorbed(t *testing.T) {
	ctx := context.Background()
	store := New(failingStorage{err: errors.New("disk full")})

	assert.NotPanics(t, func() {
		store.Put(ctx, "k", []byte(`1`), time.Minute)
		store.Remove(ctx, "k")
	})

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)

	n, ok := store.RemoveMatching(ctx, func(string) bool { return true })
	assert.False(t, ok)
	assert.Zero(t, n)
}

// =============================================================================
// RemoveMatching
// =============================================================================

func TestRemoveMatchingPrefixes(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()
	store := New(mem)

	for _, k := range []string{
		"contacts_p1_n20", "contact_42", "projects_p2_n20", "project_7",
		"files_project7_p1_n20", "tasks_p1_n20", "last_tasks", "unrelated",
	} {
		store.Put(ctx, k, []byte(`1`), time.Hour)
	}

	var prefixes []string
	for _, r := range []string{"contacts", "projects", "files", "tasks"} {
		prefixes = append(prefixes, ResourcePrefixes(r)...)
	}

	n, ok := store.RemoveMatching(ctx, HasAnyPrefix(prefixes...))
	require.True(t, ok)
	assert.Equal(t, 6, n)

	keys, err := mem.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"last_tasks", "unrelated"}, keys)
}

func TestRemoveMatchingNothing(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemoryStorage())
	n, ok := store.RemoveMatching(ctx, HasAnyPrefix("contacts_"))
	assert.True(t, ok)
	assert.Zero(t, n)
}

// =============================================================================
// Keys
// =============================================================================

func TestKeyStrings(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{"list page", ListKey("contacts", 1, 20), "contacts_p1_n20"},
		{"later page", ListKey("tasks", 3, 50), "tasks_p3_n50"},
		{"single record", ItemKey("contacts", "42"), "contact_42"},
		{"single project", ItemKey("projects", "7"), "project_7"},
		{"project files", ProjectFilesKey("7", 1, 20), "files_project7_p1_n20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.key.String())
		})
	}
}

func TestKeyDeterminism(t *testing.T) {
	a := ListKey("projects", 2, 20)
	b := Key{Resource: "projects", Op: "list", Page: 2, PageSize: 20}
	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), ListKey("projects", 2, 10).String())
}

// =============================================================================
// Snapshots
// =============================================================================

type row struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestSnapshotsRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()
	snaps := NewSnapshots[row](mem, "tasks")

	_, ok := snaps.Load(ctx)
	assert.False(t, ok)

	snaps.Save(ctx, []row{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})

	got, ok := snaps.Load(ctx)
	require.True(t, ok)
	assert.Len(t, got, 2)
	assert.Equal(t, "b", got[1].Name)

	_, err := mem.Get(ctx, "last_tasks")
	assert.NoError(t, err)
}

func TestSnapshotsCorruptIsIgnored(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()
	require.NoError(t, mem.Set(ctx, SnapshotKey("tasks"), "{"))

	_, ok := NewSnapshots[row](mem, "tasks").Load(ctx)
	assert.False(t, ok)
}

func TestSnapshotsKeepLeadingZeroIDs(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStorage()
	snaps := NewSnapshots[backend.Contact](mem, "contacts")

	snaps.Save(ctx, []backend.Contact{{ID: "0042", FirstName: "Ada"}, {ID: "7"}})

	got, ok := snaps.Load(ctx)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, backend.ID("0042"), got[0].ID)
	assert.Equal(t, backend.ID("7"), got[1].ID)
}
