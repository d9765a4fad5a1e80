// Package metrics provides the centralized Prometheus registry reference for
// the gateway. All metrics are defined in their respective packages (upstream,
// cache, ratelimit) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - bff_cache_hits_total{endpoint} (Counter): Cache hits by endpoint identity
//   - bff_cache_misses_total{endpoint} (Counter): Cache misses by endpoint identity
//   - bff_cache_bypasses_total{endpoint} (Counter): Explicit cache bypasses by endpoint identity
//   - bff_cache_invalidations_total{entity} (Counter): Entity-level invalidations
//   - bff_cache_errors_total{operation} (Counter): Cache store operation errors
//
// Rate Limit Metrics (pkg/ratelimit):
//   - bff_rate_limit_remaining (Gauge): Requests remaining in the upstream window
//   - bff_rate_limit_blocks_total (Counter): Requests blocked at the critical threshold
//   - bff_rate_limit_throttles_total (Counter): Requests throttled in the warning band
//
// Upstream Request Metrics (pkg/upstream):
//   - bff_upstream_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - bff_upstream_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - bff_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/upstream):
//   - bff_upstream_retries_total{error_class} (Counter): Retry attempts by error class
//   - bff_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - bff_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(bff_cache_hits_total[5m])) /
//   (sum(rate(bff_cache_hits_total[5m])) + sum(rate(bff_cache_misses_total[5m])))
//
//   # Rate Limit Budget Status
//   bff_rate_limit_remaining < 20
//
//   # Upstream Error Rate
//   rate(bff_upstream_errors_total[5m])
//
//   # P95 Upstream Latency
//   histogram_quantile(0.95, rate(bff_upstream_request_duration_seconds_bucket[5m]))
