// Package metrics exposes Prometheus instrumentation for the discovery and
// enrichment pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DiscoveryRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scout_discovery_requests_total",
		Help: "Total nearby-location discovery requests",
	})
	DiscoveryCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scout_discovery_cache_hits_total",
		Help: "Discovery requests served from cache",
	})
	DiscoveryCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scout_discovery_cache_misses_total",
		Help: "Discovery requests that required external lookups",
	})
	GazetteerLookupsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scout_gazetteer_lookups_total",
		Help: "Reverse place lookups issued to the gazetteer",
	})
	GazetteerFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scout_gazetteer_failures_total",
		Help: "Reverse place lookups that failed and were skipped",
	})
	DrivingTimeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scout_driving_time_requests_total",
		Help: "Driving-time lookups issued to the routing provider",
	})
	DrivingTimeFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scout_driving_time_fallbacks_total",
		Help: "Enrichment candidates that fell back to the heuristic estimate",
	})
	RequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scout_http_request_duration_seconds",
		Help:    "HTTP request duration by route",
		Buckets: []float64{0.005, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"route"})
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(
		DiscoveryRequestsTotal,
		DiscoveryCacheHitsTotal,
		DiscoveryCacheMissesTotal,
		GazetteerLookupsTotal,
		GazetteerFailuresTotal,
		DrivingTimeRequestsTotal,
		DrivingTimeFallbacksTotal,
		RequestDurationSeconds,
	)
}

// Handler returns the Prometheus scrape handler for the /metrics route.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
