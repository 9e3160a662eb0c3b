package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ingestion outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Outcomes      *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	RegistryFetch prometheus.Histogram
	BatchPlates   prometheus.Counter
	BatchFailures prometheus.Counter
}

// NewMetrics registers the ingestion metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "platereg_ingest_outcomes_total",
			Help: "Total ingestion attempts by outcome",
		}, []string{"outcome"}),

		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "platereg_ingest_duration_seconds",
			Help:    "Duration of a single plate ingestion by outcome",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),

		RegistryFetch: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "platereg_registry_fetch_duration_seconds",
			Help:    "Duration of vehicle registry lookups",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		BatchPlates: factory.NewCounter(prometheus.CounterOpts{
			Name: "platereg_batch_images_total",
			Help: "Total images processed by batch runs",
		}),

		BatchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "platereg_batch_failures_total",
			Help: "Total images in batch runs that did not yield a stored vehicle",
		}),
	}
}

func (m *Metrics) observeOutcome(outcome Outcome, d time.Duration) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome.String()).Inc()
		m.Duration.WithLabelValues(outcome.String()).Observe(d.Seconds())
	}
}

func (m *Metrics) observeRegistryFetch(d time.Duration) {
	if m != nil {
		m.RegistryFetch.Observe(d.Seconds())
	}
}

func (m *Metrics) observeBatchResult(failed bool) {
	if m != nil {
		m.BatchPlates.Inc()
		if failed {
			m.BatchFailures.Inc()
		}
	}
}
