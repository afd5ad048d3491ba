// Package metrics provides the centralized Prometheus metrics registry for
// the field sync client. All metrics are defined in their respective packages
// (cache, routing, insight, connectivity) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the sync client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - fieldsync_cache_hits_total{tier} (Counter): Cache hits by tier (memory, redis)
//   - fieldsync_cache_misses_total (Counter): Cache misses
//   - fieldsync_cache_size_bytes{tier} (Gauge): Current cache size in bytes by tier
//   - fieldsync_cache_errors_total{operation} (Counter): Cache operation errors
//   - fieldsync_generation_purges_total (Counter): Stale cache generations purged
//
// Fetch Metrics (pkg/routing):
//   - fieldsync_fetches_total{route, outcome} (Counter): Routed fetches by route
//     class and outcome (network, cache, fallback, error)
//   - fieldsync_fetch_duration_seconds{route} (Histogram): Fetch duration by route class
//   - fieldsync_offline_fallbacks_total (Counter): Synthetic offline responses served
//
// Submission Metrics (pkg/insight):
//   - fieldsync_submissions_total{result} (Counter): Insight submissions by result
//   - fieldsync_uploads_total{role, result} (Counter): Object uploads by blob role and result
//
// Connectivity Metrics (pkg/connectivity):
//   - fieldsync_connectivity_online (Gauge): 1 when the link is online, 0 otherwise
//   - fieldsync_probe_failures_total (Counter): Failed connectivity probes
//   - fieldsync_reconnects_total (Counter): Offline-to-online transitions
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(fieldsync_cache_hits_total[5m])) /
//   (sum(rate(fieldsync_cache_hits_total[5m])) + sum(rate(fieldsync_cache_misses_total[5m])))
//
//   # Offline Fallback Rate
//   rate(fieldsync_offline_fallbacks_total[5m]) / rate(fieldsync_fetches_total[5m])
//
//   # Submission Failure Rate
//   rate(fieldsync_submissions_total{result="error"}[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(fieldsync_fetch_duration_seconds_bucket[5m]))
