// Package metrics provides Prometheus metrics collection for the SuiteDash client.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache operation results.
const (
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultExpired = "expired"
	ResultError   = "error"
	ResultOK      = "ok"
)

var (
	// APIRequestDuration tracks upstream request duration by method and status code.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suitedash_api_request_duration_seconds",
			Help:    "SuiteDash API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status_code"},
	)

	// APIRequestTotal tracks total upstream requests by method and status code.
	// Network failures are recorded with status_code "0".
	APIRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suitedash_api_requests_total",
			Help: "Total number of SuiteDash API requests",
		},
		[]string{"method", "status_code"},
	)

	// RateLimitedTotal counts HTTP 429 responses.
	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suitedash_api_rate_limited_total",
			Help: "Total number of rate-limited SuiteDash API responses",
		},
		[]string{"method"},
	)

	// CacheOperationsTotal tracks cache store operations.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suitedash_cache_operations_total",
			Help: "Total number of response cache operations",
		},
		[]string{"operation", "result"},
	)

	// PageFetchesTotal tracks list controller page loads by resource and mode.
	PageFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suitedash_page_fetches_total",
			Help: "Total number of paginated list fetches",
		},
		[]string{"resource", "mode", "result"},
	)
)

// RecordAPIRequest records metrics for one upstream request.
func RecordAPIRequest(method string, statusCode int, duration time.Duration) {
	code := strconv.Itoa(statusCode)
	APIRequestDuration.WithLabelValues(method, code).Observe(duration.Seconds())
	APIRequestTotal.WithLabelValues(method, code).Inc()
}

// RecordRateLimit records a 429 response.
func RecordRateLimit(method string) {
	RateLimitedTotal.WithLabelValues(method).Inc()
}

// RecordCacheOperation records metrics for a cache operation.
func RecordCacheOperation(operation, result string) {
	CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordPageFetch records a list controller fetch.
func RecordPageFetch(resource, mode string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	PageFetchesTotal.WithLabelValues(resource, mode, result).Inc()
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format, for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
