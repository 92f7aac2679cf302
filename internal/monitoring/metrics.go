package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"birthprev/domain/stage"
)

// Metrics holds the estimation pipeline's prometheus collectors. Each
// instance owns its registry so tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	StudiesPerRun  prometheus.Histogram
	ExcludedTotal  prometheus.Counter
	BatchFilesDone *prometheus.CounterVec
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birthprev_runs_total",
				Help: "Estimation runs by outcome code",
			},
			[]string{"outcome"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "birthprev_stage_duration_seconds",
				Help:    "Stage execution time in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"stage"},
		),
		StudiesPerRun: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "birthprev_studies_per_run",
				Help:    "Number of studies in each estimation run",
				Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		ExcludedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "birthprev_excluded_studies_total",
				Help: "Studies left out of inverse-variance pooling for zero standard error",
			},
		),
		BatchFilesDone: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "birthprev_batch_files_total",
				Help: "Batch input files processed by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveStage records one stage execution
func (m *Metrics) ObserveStage(name stage.StageName, d time.Duration) {
	m.StageDuration.WithLabelValues(string(name)).Observe(d.Seconds())
}

// ObserveRun records a run outcome; outcome is "ok" or an error code.
func (m *Metrics) ObserveRun(outcome string, studies, excluded int) {
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if studies > 0 {
		m.StudiesPerRun.Observe(float64(studies))
	}
	m.ExcludedTotal.Add(float64(excluded))
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
