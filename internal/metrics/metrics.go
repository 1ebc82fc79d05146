// Package metrics holds the Prometheus collectors of the documentation
// search server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome label values
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

var (
	// Registry holds every collector below plus the Go runtime collectors.
	Registry = prometheus.NewRegistry()

	searchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docsearch_search_duration_seconds",
		Help:    "Latency of documentation searches.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	searchHits = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "docsearch_search_hits",
		Help:    "Total hits reported per search.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docsearch_refresh_total",
		Help: "Documentation refresh attempts by outcome.",
	}, []string{"outcome"})

	indexedDocuments = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "docsearch_indexed_documents",
		Help: "Documents in the active search index.",
	})

	loadedFragments = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "docsearch_loaded_fragments",
		Help: "Fragments loaded per documentation version.",
	}, []string{"version"})
)

func init() {
	Registry.MustRegister(
		searchLatency,
		searchHits,
		refreshes,
		indexedDocuments,
		loadedFragments,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// ObserveSearch records one search.
func ObserveSearch(started time.Time, totalHits uint64, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	searchLatency.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	if err == nil {
		searchHits.Observe(float64(totalHits))
	}
}

// RecordRefresh counts one refresh attempt.
func RecordRefresh(outcome string) {
	refreshes.WithLabelValues(outcome).Inc()
}

// SetIndexedDocuments sets the size of the active index.
func SetIndexedDocuments(n uint64) {
	indexedDocuments.Set(float64(n))
}

// SetLoadedFragments sets the fragment count of one version.
func SetLoadedFragments(version string, n int) {
	loadedFragments.WithLabelValues(version).Set(float64(n))
}
