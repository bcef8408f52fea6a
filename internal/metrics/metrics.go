package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row status label values.
const (
	StatusResolved   = "resolved"
	StatusUnresolved = "unresolved"
	StatusSkipped    = "skipped"
)

// Batch outcome label values.
const (
	OutcomeCompleted = "completed"
	OutcomeEmpty     = "empty"
	OutcomeCancelled = "cancelled"
)

type Metrics struct {
	RowsProcessed  *prometheus.CounterVec
	APIErrors      prometheus.Counter
	Retries        prometheus.Counter
	RequestSeconds *prometheus.HistogramVec
	Batches        *prometheus.CounterVec
	ActiveBatches  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RowsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geobatch_rows_processed_total",
			Help: "Total number of input rows by outcome (resolved, unresolved, skipped).",
		}, []string{"status"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geobatch_provider_api_errors_total",
			Help: "Total number of failed calls to the geocoding provider API.",
		}),
		Retries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "geobatch_provider_retries_total",
			Help: "Total number of retried geocoding attempts.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geobatch_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		Batches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "geobatch_batches_total",
			Help: "Total number of processed batches by outcome (completed, empty, cancelled).",
		}, []string{"outcome"}),
		ActiveBatches: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "geobatch_active_batches",
			Help: "Current number of batches being geocoded.",
		}),
	}
}

// NewDiscard returns metrics bound to a private registry nobody scrapes.
func NewDiscard() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
