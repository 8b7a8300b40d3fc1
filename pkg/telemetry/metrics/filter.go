package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/config"
)

// FilterMetrics tracks the hot filtering path.
//
// Metrics:
//   - callisto_filter_runs_total: filter invocations by attach type and verdict
//   - callisto_filter_run_duration_seconds: invocation duration by attach type
//   - callisto_filter_programs_executed_total: individual program executions
type FilterMetrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	programsExecuted prometheus.Counter
}

// NewFilterMetrics creates and registers filter metrics.
func NewFilterMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *FilterMetrics {
	fm := &FilterMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "filter",
				Name:      "runs_total",
				Help:      "Total number of filter invocations",
			},
			[]string{"attach_type", "verdict"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "filter",
				Name:      "run_duration_seconds",
				Help:      "Duration of filter invocations in seconds",
				// Chain walks should be fast (< 1ms)
				Buckets: prometheus.ExponentialBuckets(0.0000001, 4, 12), // 100ns to ~1.6s
			},
			[]string{"attach_type"},
		),

		programsExecuted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "filter",
				Name:      "programs_executed_total",
				Help:      "Total number of individual program executions",
			},
		),
	}

	registry.MustRegister(fm.runsTotal, fm.runDuration, fm.programsExecuted)
	return fm
}

// RecordRun records one filter invocation.
func (fm *FilterMetrics) RecordRun(attachType, verdict string, programs int, duration time.Duration) {
	fm.runsTotal.WithLabelValues(attachType, verdict).Inc()
	fm.runDuration.WithLabelValues(attachType).Observe(duration.Seconds())
	fm.programsExecuted.Add(float64(programs))
}
