package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitedash/backend"
	"suitedash/backend/suitedash"
	"suitedash/internal/cache"
	"suitedash/internal/testutil/fakeapi"
)

type stubClient struct {
	authErr error
	cleared int
	probes  int
	clearOK bool
	order   []string
}

func (s *stubClient) CheckAuth(context.Context) error {
	s.probes++
	s.order = append(s.order, "auth")
	return s.authErr
}

func (s *stubClient) ClearCache(context.Context) (int, bool) {
	s.order = append(s.order, "clear")
	return s.cleared, s.clearOK
}

func TestNewSessionIsLoading(t *testing.T) {
	s := New(&stubClient{})
	assert.True(t, s.Status().Loading)
	assert.False(t, s.Status().Authenticated)
}

func TestStartAuthenticated(t *testing.T) {
	s := New(&stubClient{})
	require.NoError(t, s.Start(context.Background()))
	st := s.Status()
	assert.False(t, st.Loading)
	assert.True(t, st.Authenticated)
	assert.NoError(t, st.Err)
}

func TestStartFailure(t *testing.T) {
	boom := &suitedash.AuthError{Err: errors.New("401")}
	s := New(&stubClient{authErr: boom})

	err := s.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	st := s.Status()
	assert.False(t, st.Authenticated)
	assert.True(t, suitedash.IsAuthError(st.Err))
}

func TestRefreshDataClearsThenProbes(t *testing.T) {
	stub := &stubClient{cleared: 4, clearOK: true}
	s := New(stub)

	n, err := s.RefreshData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"clear", "auth"}, stub.order)
}

func TestRefreshDataProbesEvenWhenClearFails(t *testing.T) {
	stub := &stubClient{clearOK: false}
	s := New(stub)

	_, err := s.RefreshData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stub.probes)
}

func TestRefreshDataAgainstAPI(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.Seed(backend.Contacts, 3)
	ctx := context.Background()

	client := suitedash.New(suitedash.Config{
		BaseURL:   api.URL,
		PublicID:  fakeapi.PublicID,
		SecretKey: fakeapi.SecretKey,
		Timeout:   5 * time.Second,
	}, cache.New(cache.NewMemoryStorage()))
	_, err := suitedash.For[backend.Contact](client).List(ctx, 1, 20, true)
	require.NoError(t, err)

	s := New(client)
	n, err := s.RefreshData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, s.Status().Authenticated)
}
