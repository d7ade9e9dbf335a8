// Package observability exposes Prometheus instrumentation for the
// retrieval path.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects search and retriever instrumentation
type Metrics struct {
	searchDuration    prometheus.Histogram
	searchResults     prometheus.Histogram
	degradedSearches  prometheus.Counter
	retrieverDuration *prometheus.HistogramVec
	retrieverFailures *prometheus.CounterVec
	graphUpserts      *prometheus.CounterVec
	storageRetries    prometheus.Counter
}

// NewMetrics registers the instrumentation on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recall",
			Name:      "search_duration_seconds",
			Help:      "End-to-end hybrid search latency",
			Buckets:   prometheus.DefBuckets,
		}),
		searchResults: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recall",
			Name:      "search_results",
			Help:      "Fused results returned per search",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		degradedSearches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "search_degraded_total",
			Help:      "Searches that completed with at least one failed source",
		}),
		retrieverDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recall",
			Name:      "retriever_duration_seconds",
			Help:      "Per-source retrieval latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		retrieverFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "retriever_failures_total",
			Help:      "Per-source retrieval failures and timeouts",
		}, []string{"source"}),
		graphUpserts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "graph_upserts_total",
			Help:      "Graph upserts by entity kind and outcome",
		}, []string{"kind", "outcome"}),
		storageRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "recall",
			Name:      "storage_transient_retries_total",
			Help:      "Connection acquisitions retried on transient failure",
		}),
	}
}

// ObserveSearch records one completed search
func (m *Metrics) ObserveSearch(duration time.Duration, results, failedSources int) {
	m.searchDuration.Observe(duration.Seconds())
	m.searchResults.Observe(float64(results))
	if failedSources > 0 {
		m.degradedSearches.Inc()
	}
}

// ObserveRetriever records one per-source retrieval attempt
func (m *Metrics) ObserveRetriever(source string, duration time.Duration, ok bool) {
	m.retrieverDuration.WithLabelValues(source).Observe(duration.Seconds())
	if !ok {
		m.retrieverFailures.WithLabelValues(source).Inc()
	}
}

// ObserveGraphUpsert records one node or edge assertion
func (m *Metrics) ObserveGraphUpsert(kind string, wasInserted bool) {
	outcome := "updated"
	if wasInserted {
		outcome = "inserted"
	}
	m.graphUpserts.WithLabelValues(kind, outcome).Inc()
}

// ObserveStorageRetry records one transient acquisition retry
func (m *Metrics) ObserveStorageRetry() {
	m.storageRetries.Inc()
}
