// Package metrics exposes the ingestion pipeline's Prometheus counters,
// histograms, and gauges over a text-exposition HTTP endpoint.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_processed_total",
		Help: "Total broker messages received by the consumer.",
	})
	EventsIndexedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_indexed_total",
		Help: "Total events successfully indexed (single or bulk path).",
	})
	EventsIndexedByTenantTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_indexed_by_tenant_total",
		Help: "Events successfully indexed, broken down by tenant.",
	}, []string{"tenant_id"})
	EventsNackedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_nacked_total",
		Help: "Total events rejected (DLX or broker-driven nack).",
	})
	EventsNackedByReasonTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_nacked_by_reason_total",
		Help: "Rejected events, broken down by rejection reason.",
	}, []string{"reason"})
	EventsValidationFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_validation_failed_total",
		Help: "Events that failed schema validation.",
	})
	EventsIndexFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_index_failed_total",
		Help: "Events that exhausted index retries without success.",
	})
	BulkFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulk_flushes_total",
		Help: "Total bulk-indexer flushes issued.",
	})
	IndexRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "index_retries_total",
		Help: "Total retry attempts against the search backend.",
	})

	NormalizerLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "normalizer_latency_seconds",
		Help:    "Time spent in the normalizer per event.",
		Buckets: prometheus.DefBuckets,
	})
	IndexLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "index_latency_seconds",
		Help:    "Latency of a bulk request to the search backend.",
		Buckets: prometheus.DefBuckets,
	})
	EventIndexLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "event_index_latency_seconds",
		Help:    "End-to-end latency of indexing a single event on the non-bulk path.",
		Buckets: prometheus.DefBuckets,
	})

	ConsumerBufferSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "consumer_buffer_size",
		Help: "Current number of events buffered in the bulk indexer.",
	})
	TenantRegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tenant_registry_size",
		Help: "Current number of tenants known to the registry.",
	})
)

// Serve starts the Prometheus text-exposition HTTP server on port and
// blocks until it returns an error (e.g. on listener failure or shutdown).
func Serve(port uint16) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
