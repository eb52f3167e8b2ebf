package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// IngestionMetrics instruments the upload pipeline and catalogue queries.
type IngestionMetrics struct {
	uploadRequests    prometheus.Counter
	uploadCompletions *prometheus.CounterVec
	sweptUploads      prometheus.Counter
	tasksDispatched   *prometheus.CounterVec
	queryDuration     prometheus.Histogram
	cacheLookups      *prometheus.CounterVec
}

// NewIngestionMetrics creates Prometheus-backed pipeline metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIngestionMetrics() *IngestionMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()

	return &IngestionMetrics{
		uploadRequests: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "geobim_upload_requests_total",
				Help: "Total number of presigned upload URLs issued",
			},
		),
		uploadCompletions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "geobim_upload_completions_total",
				Help: "Total number of upload completions by outcome",
			},
			[]string{"status"},
		),
		sweptUploads: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "geobim_swept_uploads_total",
				Help: "Total number of abandoned pending uploads marked deleted",
			},
		),
		tasksDispatched: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "geobim_tasks_dispatched_total",
				Help: "Total number of tasks enqueued to the worker fleet by task name",
			},
			[]string{"task"},
		),
		queryDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "geobim_catalog_query_duration_milliseconds",
				Help: "Duration of catalogue spatial queries in milliseconds",
				Buckets: []float64{
					1,    // 1ms - sqlite / tiny datasets
					5,    // 5ms
					25,   // 25ms - indexed bbox queries
					100,  // 100ms
					500,  // 500ms - large result pages
					2000, // 2s
				},
			},
		),
		cacheLookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "geobim_query_cache_lookups_total",
				Help: "Total number of catalogue query cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordUploadRequest counts one issued presigned upload URL.
func (m *IngestionMetrics) RecordUploadRequest() {
	if m == nil {
		return
	}
	m.uploadRequests.Inc()
}

// RecordUploadCompletion counts one completion attempt by outcome
// ("accepted", "duplicate", "rejected").
func (m *IngestionMetrics) RecordUploadCompletion(status string) {
	if m == nil {
		return
	}
	m.uploadCompletions.WithLabelValues(status).Inc()
}

// RecordSweptUploads counts pending uploads expired by the sweep.
func (m *IngestionMetrics) RecordSweptUploads(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptUploads.Add(float64(n))
}

// RecordTaskDispatched counts one enqueued worker task.
func (m *IngestionMetrics) RecordTaskDispatched(task string) {
	if m == nil {
		return
	}
	m.tasksDispatched.WithLabelValues(task).Inc()
}

// RecordQueryDuration records the latency of one catalogue spatial query.
func (m *IngestionMetrics) RecordQueryDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.Observe(float64(d.Milliseconds()))
}

// RecordCacheLookup counts one query cache lookup ("hit" or "miss").
func (m *IngestionMetrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}
