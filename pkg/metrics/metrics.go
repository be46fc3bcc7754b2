// Package metrics provides the Prometheus registry used by the SEMP client.
// Metrics are defined in their respective packages (client, pagination, bus,
// cache, perf) and registered via promauto; this package catalogues them and
// exposes the registry and an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the SEMP client.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler returns an HTTP handler exposing every registered metric.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// SEMP over HTTP (pkg/client):
//   - semp_http_requests_total{status} (Counter): requests by HTTP status or "network_error"
//   - semp_http_request_duration_seconds (Histogram): request latency
//   - semp_http_errors_total{kind} (Counter): failures by error kind
//   - semp_retries_total{error_kind} (Counter): caller-level retry attempts
//   - semp_retry_exhausted_total{error_kind} (Counter): operations failing after their last attempt
//
// Paged retrieval (pkg/pagination):
//   - semp_pages_total (Counter): reply pages retrieved
//   - semp_paging_runs_total{outcome} (Counter): finished retrievals by outcome
//     ("complete", "timeout", "transport", "protocol", "parse")
//
// Message bus (pkg/bus):
//   - semp_bus_requests_total{outcome} (Counter): request/reply exchanges
//   - semp_bus_messages_received_total{kind} (Counter): messages delivered ("topic", "queue")
//   - semp_bus_messages_published_total{kind} (Counter): messages published
//   - semp_bus_session_events_total{event} (Counter): connects, disconnects, reconnects, async errors
//
// Throughput runner (pkg/perf):
//   - semp_perf_request_duration_seconds (Histogram): per-request latency during a run
//
// Reply cache (pkg/cache):
//   - semp_cache_hits_total (Counter)
//   - semp_cache_misses_total (Counter)
//   - semp_cache_errors_total{operation} (Counter)
//
// Example Prometheus Queries:
//
//   # Paging failure ratio
//   sum(rate(semp_paging_runs_total{outcome!="complete"}[5m])) /
//   sum(rate(semp_paging_runs_total[5m]))
//
//   # P95 SEMP HTTP latency
//   histogram_quantile(0.95, rate(semp_http_request_duration_seconds_bucket[5m]))
