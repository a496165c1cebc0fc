// Package transport is the single HTTP channel to the SuiteDash API. It
// authenticates every request, bounds it with a timeout and surfaces 429
// responses without retrying.
package transport

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"suitedash/internal/metrics"
	"suitedash/internal/ratelimit"
	"suitedash/internal/utils"
)

const (
	HeaderPublicID  = "X-Public-ID"
	HeaderSecretKey = "X-Secret-Key"
	HeaderRequestID = "X-Request-ID"
)

// Client sends authenticated JSON requests to the API.
type Client struct {
	resty *resty.Client
	opts  Options
	log   zerolog.Logger
}

// New creates a Client. Requests are never retried.
func New(opts ...Option) *Client {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	c := &Client{opts: cfg, log: utils.WithComponent("transport")}

	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetLogger(restyLogger{c.log})
	if len(cfg.Headers) > 0 {
		rc.SetHeaders(cfg.Headers)
	}
	rc.SetHeaders(map[string]string{
		"Accept":        "application/json",
		"Content-Type":  "application/json",
		HeaderPublicID:  cfg.PublicID,
		HeaderSecretKey: cfg.SecretKey,
	})

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader(HeaderRequestID, uuid.NewString())
		return nil
	})
	rc.OnAfterResponse(c.interceptRateLimit)

	c.resty = rc
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

// interceptRateLimit turns a 429 into an *Error carrying Retry-After and
// notifies the rate limit handler.
func (c *Client) interceptRateLimit(_ *resty.Client, resp *resty.Response) error {
	method := resp.Request.Method
	metrics.RecordAPIRequest(method, resp.StatusCode(), resp.Time())

	if !ratelimit.IsRateLimited(resp.StatusCode()) {
		return nil
	}

	ev := ratelimit.NewEvent(method, c.requestPath(resp.Request.URL), resp.Header(), c.opts.Now())
	metrics.RecordRateLimit(method)
	c.log.Warn().Str("method", method).Str("path", ev.Path).Dur("retry_after", ev.RetryAfter).Msg(ratelimit.Message)
	if c.opts.OnRateLimit != nil {
		c.opts.OnRateLimit(ev)
	}

	return &Error{
		Method:     method,
		Path:       ev.Path,
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
		RetryAfter: ev.RetryAfter,
	}
}

// requestPath strips the base URL and query from a resolved request URL.
func (c *Client) requestPath(raw string) string {
	p := strings.TrimPrefix(raw, strings.TrimRight(c.opts.BaseURL, "/"))
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

// Get fetches path with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	req := c.resty.R()
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	return c.do(ctx, req, resty.MethodGet, path)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, c.resty.R().SetBody(body), resty.MethodPost, path)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, c.resty.R().SetBody(body), resty.MethodPut, path)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, c.resty.R(), resty.MethodDelete, path)
}

// Upload posts a multipart form with a single file part under field.
func (c *Client) Upload(ctx context.Context, path, field, fileName string, r io.Reader, form map[string]string) ([]byte, error) {
	req := c.resty.R().SetFileReader(field, fileName, r)
	if len(form) > 0 {
		req.SetFormData(form)
	}
	return c.do(ctx, req, resty.MethodPost, path)
}

func (c *Client) do(ctx context.Context, req *resty.Request, method, path string) ([]byte, error) {
	resp, err := req.SetContext(ctx).Execute(method, path)
	if err != nil {
		if te, ok := AsError(err); ok {
			return nil, te
		}
		metrics.RecordAPIRequest(method, 0, 0)
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, &Error{Method: method, Path: path, Err: err}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("status", strconv.Itoa(resp.StatusCode())).
		Dur("elapsed", resp.Time()).
		Msg("api request")

	if resp.IsError() {
		return nil, &Error{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
		}
	}
	return resp.Body(), nil
}

// restyLogger routes resty's internal messages through zerolog.
type restyLogger struct{ log zerolog.Logger }

func (l restyLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...interface{})  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
