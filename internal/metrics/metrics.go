package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reportsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_reports_imported_total",
			Help: "Total number of activity reports imported",
		},
	)

	tradesImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_trades_imported_total",
			Help: "Total number of trades stored across all imports",
		},
	)

	importFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_import_failures_total",
			Help: "Total number of rejected imports",
		},
		[]string{"reason"}, // reason: invalid_report, storage
	)

	remoteFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_remote_fetch_total",
			Help: "Total number of remote report downloads",
		},
		[]string{"status"}, // status: success, failure
	)

	remoteFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "journal_remote_fetch_duration_seconds",
			Help:    "Remote report download duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "journal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5},
		},
		[]string{"method", "path", "status"},
	)
)

// Metrics records application level Prometheus metrics. The underlying
// collectors are registered on the default registry at package init.
type Metrics struct{}

func New() *Metrics {
	return &Metrics{}
}

// RecordImport counts a successful report import.
func (m *Metrics) RecordImport(tradeCount int) {
	reportsImported.Inc()
	tradesImported.Add(float64(tradeCount))
}

// RecordImportFailure counts a rejected import.
func (m *Metrics) RecordImportFailure(reason string) {
	importFailures.WithLabelValues(reason).Inc()
}

// RecordRemoteFetch counts one remote download attempt.
func (m *Metrics) RecordRemoteFetch(status string, duration time.Duration) {
	remoteFetchTotal.WithLabelValues(status).Inc()
	remoteFetchDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest tracks one handled request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
