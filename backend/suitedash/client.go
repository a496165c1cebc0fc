// Package suitedash provides the resource client for the SuiteDash secure
// API: cache-first reads, network-only writes and bulk cache invalidation.
package suitedash

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"suitedash/backend"
	"suitedash/internal/cache"
	"suitedash/internal/ratelimit"
	"suitedash/internal/transport"
	"suitedash/internal/utils"
)

// DefaultPageSize is the page size used when callers pass zero.
const DefaultPageSize = 20

// Config holds SuiteDash connection settings
type Config struct {
	BaseURL     string // Override for testing
	PublicID    string
	SecretKey   string
	Timeout     time.Duration
	CacheTTL    time.Duration
	Headers     map[string]string // Extra headers, e.g. User-Agent
	OnRateLimit ratelimit.Handler
}

// Transport is the HTTP surface the client needs. *transport.Client
// satisfies it.
type Transport interface {
	Get(ctx context.Context, path string, query map[string]string) ([]byte, error)
	Post(ctx context.Context, path string, body any) ([]byte, error)
	Put(ctx context.Context, path string, body any) ([]byte, error)
	Delete(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path, field, fileName string, r io.Reader, form map[string]string) ([]byte, error)
}

// Client reads and writes SuiteDash resources. Responses are returned raw;
// see Resources for typed access.
type Client struct {
	http  Transport
	cache *cache.Store
	ttl   time.Duration
	stats *ratelimit.Stats
	log   zerolog.Logger
}

// New creates a client talking to the configured API and caching in store.
func New(cfg Config, store *cache.Store) *Client {
	c := newClient(store, cfg.CacheTTL)
	c.http = transport.New(
		transport.WithBaseURL(cfg.BaseURL),
		transport.WithTimeout(cfg.Timeout),
		transport.WithCredentials(cfg.PublicID, cfg.SecretKey),
		transport.WithHeaders(cfg.Headers),
		transport.WithOnRateLimit(ratelimit.Chain(c.stats.Record, cfg.OnRateLimit)),
	)
	return c
}

// NewWithTransport creates a client over an existing transport. A zero ttl
// uses cache.DefaultTTL. Rate limit events of t are not counted in
// RateLimitStats.
func NewWithTransport(t Transport, store *cache.Store, ttl time.Duration) *Client {
	c := newClient(store, ttl)
	c.http = t
	return c
}

func newClient(store *cache.Store, ttl time.Duration) *Client {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Client{
		cache: store,
		ttl:   ttl,
		stats: ratelimit.NewStats(),
		log:   utils.WithComponent("suitedash"),
	}
}

// RateLimitStats returns the 429 counters for this client.
func (c *Client) RateLimitStats() *ratelimit.Stats {
	return c.stats
}

// Cache returns the response cache.
func (c *Client) Cache() *cache.Store {
	return c.cache
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// cachedGet serves key from cache when useCache is set, otherwise calls the
// API and stores a successful response under key.
func (c *Client) cachedGet(ctx context.Context, key cache.Key, useCache bool, path string, query map[string]string) ([]byte, error) {
	k := key.String()
	if useCache {
		if data, ok := c.cache.Get(ctx, k); ok {
			c.log.Debug().Str("key", k).Msg("cache hit")
			return data, nil
		}
	}

	data, err := c.http.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	if useCache {
		c.cache.Put(ctx, k, data, c.ttl)
	}
	return data, nil
}

// List fetches one page of a resource collection.
func (c *Client) List(ctx context.Context, rt backend.ResourceType, page, pageSize int, useCache bool) ([]byte, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(pageSize),
	}
	data, err := c.cachedGet(ctx, cache.ListKey(string(rt), page, pageSize), useCache, rt.ListPath(), query)
	if err != nil {
		c.log.Error().Err(err).
			Str("resource", string(rt)).
			Int("page", page).
			Int("per_page", pageSize).
			Int("status", transport.StatusCode(err)).
			Msgf("error fetching %s", rt)
		return nil, err
	}
	return data, nil
}

// Get fetches a single record by id.
func (c *Client) Get(ctx context.Context, rt backend.ResourceType, id string, useCache bool) ([]byte, error) {
	data, err := c.cachedGet(ctx, cache.ItemKey(string(rt), id), useCache, rt.ItemPath(id), nil)
	if err != nil {
		c.log.Error().Err(err).
			Str("resource", string(rt)).
			Str("id", id).
			Int("status", transport.StatusCode(err)).
			Msgf("error fetching %s with ID %s", rt.Singular(), id)
		return nil, err
	}
	return data, nil
}

// ListProjectFiles fetches one page of the files attached to a project.
func (c *Client) ListProjectFiles(ctx context.Context, projectID string, page, pageSize int, useCache bool) ([]byte, error) {
	page, pageSize = normalizePage(page, pageSize)
	query := map[string]string{
		"project_id": projectID,
		"page":       strconv.Itoa(page),
		"per_page":   strconv.Itoa(pageSize),
	}
	key := cache.ProjectFilesKey(projectID, page, pageSize)
	data, err := c.cachedGet(ctx, key, useCache, backend.Files.ListPath(), query)
	if err != nil {
		c.log.Error().Err(err).
			Str("resource", string(backend.Files)).
			Str("project_id", projectID).
			Int("status", transport.StatusCode(err)).
			Msgf("error fetching files for project %s", projectID)
		return nil, err
	}
	return data, nil
}

// Create posts a new record. Cached lists are left untouched.
func (c *Client) Create(ctx context.Context, rt backend.ResourceType, payload any) ([]byte, error) {
	data, err := c.http.Post(ctx, rt.ListPath(), payload)
	if err != nil {
		c.log.Error().Err(err).
			Str("resource", string(rt)).
			Int("status", transport.StatusCode(err)).
			Msgf("error creating %s", rt.Singular())
		return nil, err
	}
	return data, nil
}

// Update replaces fields on a project or task.
func (c *Client) Update(ctx context.Context, rt backend.ResourceType, id string, payload any) ([]byte, error) {
	if !rt.Mutable() {
		return nil, fmt.Errorf("update %s: %w", rt, ErrImmutable)
	}
	data, err := c.http.Put(ctx, rt.ItemPath(id), payload)
	if err != nil {
		c.log.Error().Err(err).
			Str("resource", string(rt)).
			Str("id", id).
			Int("status", transport.StatusCode(err)).
			Msgf("error updating %s with ID %s", rt.Singular(), id)
		return nil, err
	}
	return data, nil
}

// Delete removes a project or task.
func (c *Client) Delete(ctx context.Context, rt backend.ResourceType, id string) error {
	if !rt.Mutable() {
		return fmt.Errorf("delete %s: %w", rt, ErrImmutable)
	}
	if _, err := c.http.Delete(ctx, rt.ItemPath(id)); err != nil {
		c.log.Error().Err(err).
			Str("resource", string(rt)).
			Str("id", id).
			Int("status", transport.StatusCode(err)).
			Msgf("error deleting %s with ID %s", rt.Singular(), id)
		return err
	}
	return nil
}

// Upload sends a file as multipart form data. form carries extra fields
// such as project_id.
func (c *Client) Upload(ctx context.Context, fileName string, r io.Reader, form map[string]string) ([]byte, error) {
	data, err := c.http.Upload(ctx, backend.Files.ListPath(), "file", fileName, r, form)
	if err != nil {
		c.log.Error().Err(err).
			Str("resource", string(backend.Files)).
			Str("file", fileName).
			Int("status", transport.StatusCode(err)).
			Msg("error uploading file")
		return nil, err
	}
	return data, nil
}

// CheckAuth probes the API with the configured credentials, bypassing the
// cache. It returns an *AuthError when the probe fails.
func (c *Client) CheckAuth(ctx context.Context) error {
	_, err := c.http.Get(ctx, backend.Contacts.ListPath(), map[string]string{"per_page": "1"})
	if err != nil {
		c.log.Error().Err(err).Int("status", transport.StatusCode(err)).Msg("authentication check failed")
		return &AuthError{Err: err}
	}
	return nil
}

// cachePrefixes lists every key prefix owned by API resources. Snapshot
// keys ("last_*") are not included.
func cachePrefixes(types ...backend.ResourceType) []string {
	var prefixes []string
	for _, rt := range types {
		prefixes = append(prefixes, cache.ResourcePrefixes(string(rt))...)
	}
	return prefixes
}

// ClearCache removes every cached API response. It returns the number of
// keys removed and false when the storage sweep failed.
func (c *Client) ClearCache(ctx context.Context) (int, bool) {
	n, ok := c.cache.RemoveMatching(ctx, cache.HasAnyPrefix(cachePrefixes(backend.AllResourceTypes()...)...))
	if ok {
		c.log.Debug().Int("keys", n).Msg("cache cleared")
	}
	return n, ok
}

// Invalidate removes the cached list pages and records of one resource type.
// The client never calls it itself; callers use it after mutations.
func (c *Client) Invalidate(ctx context.Context, rt backend.ResourceType) int {
	n, _ := c.cache.RemoveMatching(ctx, cache.HasAnyPrefix(cachePrefixes(rt)...))
	return n
}
