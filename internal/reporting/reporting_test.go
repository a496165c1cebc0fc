package reporting

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"suitedash/backend/suitedash"
	"suitedash/internal/transport"
	"suitedash/internal/utils"
)

func TestNewWithoutKeyIsNoop(t *testing.T) {
	r := New(Config{})
	assert.False(t, r.Enabled())
	assert.NotPanics(t, func() {
		r.Report(errors.New("x"), nil)
		r.Flush()
	})
}

func TestUnexpected(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), true},
		{"user error", utils.ErrCredentialsNotFound(), false},
		{"rate limited", &transport.Error{Method: "GET", Path: "/tasks", StatusCode: 429}, false},
		{"not found", &transport.Error{Method: "GET", Path: "/tasks/1", StatusCode: 404}, false},
		{"server error", &transport.Error{Method: "GET", Path: "/tasks", StatusCode: 502}, true},
		{"network", &transport.Error{Method: "GET", Path: "/tasks", Err: errors.New("connection refused")}, true},
		{"auth over network", &suitedash.AuthError{Err: &transport.Error{Method: "GET", Path: "/contacts", Err: errors.New("connection refused")}}, false},
		{"auth over 503", &suitedash.AuthError{Err: &transport.Error{Method: "GET", Path: "/contacts", StatusCode: 503}}, false},
		{"wrapped auth", fmt.Errorf("auth check: %w", &suitedash.AuthError{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Unexpected(tt.err))
		})
	}
}

func TestHoneybadgerReportsUnexpectedOnly(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	r := New(Config{APIKey: "hb-key", Env: "test", Endpoint: server.URL, Sync: true})
	assert.True(t, r.Enabled())

	r.Report(&transport.Error{Method: "GET", Path: "/tasks", StatusCode: 500, Body: "oops"}, map[string]any{"command": "tasks list"})
	r.Report(&transport.Error{Method: "GET", Path: "/tasks", StatusCode: 404}, nil)
	r.Flush()

	mu.Lock()
	defer mu.Unlock()
	if assert.Len(t, bodies, 1) {
		assert.Contains(t, bodies[0], "tasks list")
		assert.Contains(t, bodies[0], "5XX")
	}
}
