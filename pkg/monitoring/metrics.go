package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts outbound requests per upstream service.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wei_client_requests_total",
			Help: "Total number of outbound requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	// RequestDuration measures outbound request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wei_client_request_duration_seconds",
			Help:    "Outbound request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "path"},
	)

	// RequestRetries counts retried attempts.
	RequestRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wei_client_request_retries_total",
			Help: "Total number of retried outbound attempts",
		},
		[]string{"service"},
	)

	// ResponseCacheLookups counts GraphQL response cache lookups.
	ResponseCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wei_graphql_response_cache_lookups_total",
			Help: "GraphQL response cache lookups by result (hit, miss, bypass)",
		},
		[]string{"operation", "result"},
	)

	// PageLoads counts pagination loads by kind and outcome.
	PageLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wei_pagination_page_loads_total",
			Help: "Pagination page loads by kind (initial, more) and outcome",
		},
		[]string{"collection", "kind", "outcome"},
	)

	// PageLoadsDropped counts loadMore calls ignored by the single-flight guard.
	PageLoadsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wei_pagination_page_loads_dropped_total",
			Help: "loadMore calls ignored because a fetch was in flight or the collection was exhausted",
		},
		[]string{"collection", "reason"},
	)

	// CacheControlOperations counts remote cache-control operations.
	CacheControlOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wei_cache_control_operations_total",
			Help: "Remote cache-control operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// FeatureRefreshes counts refresh-then-read cycles per feature adapter.
	FeatureRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wei_feature_refreshes_total",
			Help: "Feature adapter refresh cycles by outcome",
		},
		[]string{"feature", "outcome"},
	)
)

// Outcome converts an error into a metric label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
