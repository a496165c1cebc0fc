package shutdown_test

import (
	"context"
	"errors"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitedash/internal/shutdown"
)

func TestCleanupsRunInReverseOrder(t *testing.T) {
	mgr := shutdown.NewManager(context.Background())

	var order []string
	mgr.Register("storage", func(ctx context.Context) error {
		order = append(order, "storage")
		return nil
	})
	mgr.Register("reporter", func(ctx context.Context) error {
		order = append(order, "reporter")
		return nil
	})

	require.NoError(t, mgr.Close(time.Second))
	assert.Equal(t, []string{"reporter", "storage"}, order)
}

func TestCloseIsIdempotent(t *testing.T) {
	mgr := shutdown.NewManager(context.Background())

	var calls atomic.Int32
	mgr.Register("count", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, mgr.Close(time.Second))
	require.NoError(t, mgr.Close(time.Second))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCloseJoinsErrorsAndContinues(t *testing.T) {
	mgr := shutdown.NewManager(context.Background())
	boom := errors.New("boom")

	var ran atomic.Bool
	mgr.Register("first", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	mgr.Register("second", func(ctx context.Context) error { return boom })

	err := mgr.Close(time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "second")
	assert.True(t, ran.Load())
}

func TestCloseTimesOut(t *testing.T) {
	mgr := shutdown.NewManager(context.Background())
	release := make(chan struct{})
	defer close(release)

	mgr.Register("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	err := mgr.Close(20 * time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestContextCancelledByClose(t *testing.T) {
	mgr := shutdown.NewManager(context.Background())
	require.NoError(t, mgr.Context().Err())

	require.NoError(t, mgr.Close(time.Second))
	assert.Error(t, mgr.Context().Err())
	assert.False(t, mgr.Interrupted())
}

func TestSignalCancelsContext(t *testing.T) {
	mgr := shutdown.NewManager(context.Background(), syscall.SIGUSR1)
	defer func() { _ = mgr.Close(time.Second) }()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case <-mgr.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled by the signal")
	}
	assert.True(t, mgr.Interrupted())
}

func TestParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	mgr := shutdown.NewManager(parent)
	defer func() { _ = mgr.Close(time.Second) }()

	cancel()
	assert.Error(t, mgr.Context().Err())
}

func TestRegisterAfterCloseRunsImmediately(t *testing.T) {
	mgr := shutdown.NewManager(context.Background())
	require.NoError(t, mgr.Close(time.Second))

	var ran atomic.Bool
	mgr.Register("late", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	assert.True(t, ran.Load())
}
