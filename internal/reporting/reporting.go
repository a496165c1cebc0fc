// Package reporting forwards unexpected failures to Honeybadger.
package reporting

import (
	"errors"
	"net/http"

	honeybadger "github.com/honeybadger-io/honeybadger-go"

	"suitedash/internal/transport"
	"suitedash/internal/utils"
)

// Config selects the Honeybadger project. An empty APIKey disables reporting.
type Config struct {
	APIKey   string
	Env      string
	Endpoint string // Override for testing
	Sync     bool
}

// Reporter records unexpected errors.
type Reporter interface {
	Report(err error, fields map[string]any)
	Flush()
	Enabled() bool
}

// New returns a Honeybadger reporter, or a no-op when no key is configured.
func New(cfg Config) Reporter {
	if cfg.APIKey == "" {
		utils.Debugf("Honeybadger is not active. Set reporting.honeybadger_api_key to enable error reporting.")
		return Noop{}
	}
	hc := honeybadger.Configuration{
		APIKey: cfg.APIKey,
		Env:    cfg.Env,
		Sync:   cfg.Sync,
	}
	if cfg.Endpoint != "" {
		hc.Endpoint = cfg.Endpoint
	}
	return &Honeybadger{client: honeybadger.New(hc)}
}

// Noop discards every report.
type Noop struct{}

func (Noop) Report(error, map[string]any) {}
func (Noop) Flush()                       {}
func (Noop) Enabled() bool                { return false }

// Honeybadger sends reports through a dedicated honeybadger client.
type Honeybadger struct {
	client *honeybadger.Client
}

// Report notifies Honeybadger when err is unexpected. User errors, auth
// failures and 4xx responses are not reported.
func (h *Honeybadger) Report(err error, fields map[string]any) {
	if !Unexpected(err) {
		return
	}
	ctx := honeybadger.Context{}
	for k, v := range fields {
		ctx[k] = v
	}
	tags := honeybadger.Tags{"cli"}
	if transport.IsNetwork(err) {
		tags = append(tags, "network")
	} else if transport.StatusCode(err) >= http.StatusInternalServerError {
		tags = append(tags, "5XX")
	}
	if _, nerr := h.client.Notify(err, ctx, tags); nerr != nil {
		utils.Warnf("honeybadger notify failed: %v", nerr)
	}
}

// Flush waits for queued reports to be sent.
func (h *Honeybadger) Flush() {
	h.client.Flush()
}

func (h *Honeybadger) Enabled() bool { return true }

// authFailure is implemented by errors from the credential probe.
type authFailure interface {
	AuthFailure() bool
}

// Unexpected reports whether err is worth reporting. User-facing errors,
// auth failures, rate limits and other 4xx responses are not.
func Unexpected(err error) bool {
	if err == nil {
		return false
	}
	var ue *utils.ErrorWithSuggestion
	if errors.As(err, &ue) {
		return false
	}
	var af authFailure
	if errors.As(err, &af) && af.AuthFailure() {
		return false
	}
	status := transport.StatusCode(err)
	if status >= 400 && status < 500 {
		return false
	}
	return true
}
