// internal/monitoring/metrics.go

// Package monitoring exposes Prometheus metrics for the crawl pipeline and a
// small status HTTP server for long-running crawls.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects pipeline counters and histograms. A nil *Metrics is valid
// and turns every observation into a no-op, so components do not need to
// guard their instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts     *prometheus.CounterVec
	fetchRetries      *prometheus.CounterVec
	fetchFailures     *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	pagesScraped      *prometheus.CounterVec
	recordsAssembled  *prometheus.CounterVec
	lowConfidence     *prometheus.CounterVec
	duplicatesDropped *prometheus.CounterVec
	exportsTotal      *prometheus.CounterVec
}

// New creates a Metrics set registered on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		fetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_fetch_attempts_total",
			Help: "HTTP fetch attempts, including retries.",
		}, []string{"site"}),

		fetchRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_fetch_retries_total",
			Help: "Fetch attempts that were retried after a transient failure.",
		}, []string{"site"}),

		fetchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_fetch_failures_total",
			Help: "Fetches that ended in failure, by failure kind.",
		}, []string{"site", "kind"}),

		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webharvest_fetch_duration_seconds",
			Help:    "Duration of successful fetches, including rate-limit waits.",
			Buckets: prometheus.DefBuckets,
		}, []string{"site"}),

		pagesScraped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_pages_scraped_total",
			Help: "Pages successfully fetched and parsed.",
		}, []string{"site"}),

		recordsAssembled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_records_assembled_total",
			Help: "Records assembled from parsed pages.",
		}, []string{"site"}),

		lowConfidence: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_records_low_confidence_total",
			Help: "Records flagged as sparse (below the minimum field count).",
		}, []string{"site"}),

		duplicatesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_records_duplicate_total",
			Help: "Records discarded because their identity key was already seen.",
		}, []string{"site"}),

		exportsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webharvest_exports_total",
			Help: "Export operations by format and outcome.",
		}, []string{"site", "format", "outcome"}),
	}
}

// Registry returns the underlying registry for serving /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetchAttempt counts one outbound request attempt.
func (m *Metrics) ObserveFetchAttempt(site string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(site).Inc()
}

// ObserveFetchRetry counts one scheduled retry.
func (m *Metrics) ObserveFetchRetry(site string) {
	if m == nil {
		return
	}
	m.fetchRetries.WithLabelValues(site).Inc()
}

// ObserveFetchFailure counts one terminal fetch failure.
func (m *Metrics) ObserveFetchFailure(site, kind string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(site, kind).Inc()
}

// ObserveFetchDuration records the duration of a successful fetch.
func (m *Metrics) ObserveFetchDuration(site string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(site).Observe(seconds)
}

// ObservePageScraped counts one fully processed page.
func (m *Metrics) ObservePageScraped(site string) {
	if m == nil {
		return
	}
	m.pagesScraped.WithLabelValues(site).Inc()
}

// ObserveRecordAssembled counts one assembled record, flagging sparse ones.
func (m *Metrics) ObserveRecordAssembled(site string, lowConfidence bool) {
	if m == nil {
		return
	}
	m.recordsAssembled.WithLabelValues(site).Inc()
	if lowConfidence {
		m.lowConfidence.WithLabelValues(site).Inc()
	}
}

// ObserveDuplicateDropped counts one record discarded as a duplicate.
func (m *Metrics) ObserveDuplicateDropped(site string) {
	if m == nil {
		return
	}
	m.duplicatesDropped.WithLabelValues(site).Inc()
}

// ObserveExport counts one export operation.
func (m *Metrics) ObserveExport(site, format string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.exportsTotal.WithLabelValues(site, format, outcome).Inc()
}
