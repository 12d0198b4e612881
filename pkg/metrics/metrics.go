// Package metrics provides the Prometheus registry reference for the WHOOP
// recovery tools and exports collected metrics for the node_exporter
// textfile collector. All metrics are defined in their respective packages
// (client, pagination, chart, sink) to maintain modularity and avoid
// circular dependencies.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source exported by WriteTextfile.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every registered metric to path in the text
// exposition format. The file is replaced atomically.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics textfile path is required")
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - whoop_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - whoop_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - whoop_errors_total{class} (Counter): Errors by class (client, auth, server, network, unexpected)
//   - whoop_auth_attempts_total{result} (Counter): Password grant attempts by result
//
// Pagination Metrics (pkg/pagination):
//   - whoop_pages_fetched_total{endpoint} (Counter): Collection pages fetched
//   - whoop_records_fetched_total{endpoint} (Counter): Records received across pages
//
// Output Metrics (pkg/chart, pkg/sink):
//   - whoop_chart_render_seconds (Histogram): PNG render duration
//   - whoop_sink_writes_total{kind, result} (Counter): Artifact writes by sink kind (dir, s3)
//
// Example Prometheus Queries:
//
//   # Request Error Rate
//   rate(whoop_errors_total[1h])
//
//   # Records per Run
//   increase(whoop_records_fetched_total{endpoint="v1/recovery"}[1d])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(whoop_request_duration_seconds_bucket[1d]))
//
//   # Failed Uploads
//   whoop_sink_writes_total{result="error"} > 0
