package paging_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitedash/backend"
	"suitedash/backend/suitedash"
	"suitedash/internal/cache"
	"suitedash/internal/paging"
	"suitedash/internal/testutil/fakeapi"
	"suitedash/internal/transport"
)

func newTaskController(t *testing.T, api *fakeapi.Server, storage cache.Storage) *paging.Controller[backend.Task] {
	t.Helper()
	client := suitedash.New(suitedash.Config{
		BaseURL:   api.URL,
		PublicID:  fakeapi.PublicID,
		SecretKey: fakeapi.SecretKey,
		Timeout:   5 * time.Second,
	}, cache.New(storage))

	return paging.New[backend.Task](suitedash.For[backend.Task](client),
		paging.WithSnapshots[backend.Task](cache.NewSnapshots[backend.Task](storage, string(backend.Tasks))),
		paging.WithResourceName[backend.Task](string(backend.Tasks)),
	)
}

func TestTasksScreenAgainstAPI(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(backend.Tasks, 25)
	ctx := context.Background()

	c := newTaskController(t, api, cache.NewMemoryStorage())

	require.NoError(t, c.Mount(ctx))
	assert.Len(t, c.State().Items, 20)
	assert.True(t, c.State().HasMore)

	started, err := c.LoadMore(ctx)
	require.NoError(t, err)
	require.True(t, started)
	assert.Len(t, c.State().Items, 25)
	assert.False(t, c.State().HasMore)

	started, _ = c.LoadMore(ctx)
	assert.False(t, started)
	assert.Equal(t, 2, api.RequestCount("/tasks"))
}

func TestSecondMountUsesCacheAndSnapshot(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(backend.Tasks, 5)
	ctx := context.Background()
	storage := cache.NewMemoryStorage()

	first := newTaskController(t, api, storage)
	require.NoError(t, first.Mount(ctx))
	first.Unmount()

	api.FailWith(http.StatusServiceUnavailable)
	second := newTaskController(t, api, storage)
	require.NoError(t, second.Mount(ctx), "fresh cache entry serves the first page")
	assert.Len(t, second.State().Items, 5)
	assert.Equal(t, 1, api.RequestCount("/tasks"))

	err := second.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, transport.StatusCode(err))
	assert.Len(t, second.State().Items, 5, "failed refresh keeps the list")
	assert.Equal(t, paging.Failed, second.State().Status)
}
