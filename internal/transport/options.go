package transport

import (
	"time"

	"suitedash/internal/ratelimit"
)

// DefaultBaseURL is the SuiteDash secure API root.
const DefaultBaseURL = "https://app.suitedash.com/secure-api"

// DefaultTimeout bounds every request end to end.
const DefaultTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	PublicID    string
	SecretKey   string
	Headers     map[string]string
	OnRateLimit ratelimit.Handler
	Now         func() time.Time
}

// Option mutates Options.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
		Now:     time.Now,
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(url string) Option {
	return func(o *Options) {
		if url != "" {
			o.BaseURL = url
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithCredentials sets the public ID and secret key sent on every request.
func WithCredentials(publicID, secretKey string) Option {
	return func(o *Options) {
		o.PublicID = publicID
		o.SecretKey = secretKey
	}
}

// WithHeaders adds extra default headers. Credential and content headers
// always win over these.
func WithHeaders(headers map[string]string) Option {
	return func(o *Options) {
		if len(headers) == 0 {
			return
		}
		o.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithOnRateLimit registers a handler invoked for every 429 response.
func WithOnRateLimit(h ratelimit.Handler) Option {
	return func(o *Options) {
		o.OnRateLimit = h
	}
}

// WithClock overrides the time source used for Retry-After dates.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}
