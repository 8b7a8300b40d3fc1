package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/callisto/pkg/config"
)

// HierarchyMetrics tracks control-plane activity of the hierarchy engine.
//
// Metrics:
//   - callisto_hierarchy_attaches_total: attach attempts by attach type and outcome
//   - callisto_hierarchy_detaches_total: detach attempts by attach type and outcome
//   - callisto_hierarchy_propagated_nodes: descendants updated per propagation
//   - callisto_hierarchy_enabled_programs: programs currently attached anywhere
//   - callisto_hierarchy_nodes: live scope nodes
type HierarchyMetrics struct {
	attachesTotal   *prometheus.CounterVec
	detachesTotal   *prometheus.CounterVec
	propagatedNodes prometheus.Histogram
	enabledPrograms prometheus.Gauge
	nodes           prometheus.Gauge
}

// NewHierarchyMetrics creates and registers hierarchy metrics.
func NewHierarchyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HierarchyMetrics {
	hm := &HierarchyMetrics{
		attachesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hierarchy",
				Name:      "attaches_total",
				Help:      "Total number of attach attempts",
			},
			[]string{"attach_type", "outcome"},
		),

		detachesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hierarchy",
				Name:      "detaches_total",
				Help:      "Total number of detach attempts",
			},
			[]string{"attach_type", "outcome"},
		),

		propagatedNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hierarchy",
				Name:      "propagated_nodes",
				Help:      "Descendant nodes updated per propagation",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
			},
		),

		enabledPrograms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hierarchy",
				Name:      "enabled_programs",
				Help:      "Programs currently attached anywhere in the tree",
			},
		),

		nodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "hierarchy",
				Name:      "nodes",
				Help:      "Live scope nodes",
			},
		),
	}

	registry.MustRegister(
		hm.attachesTotal,
		hm.detachesTotal,
		hm.propagatedNodes,
		hm.enabledPrograms,
		hm.nodes,
	)
	return hm
}

// RecordAttach records an attach attempt and its outcome.
func (hm *HierarchyMetrics) RecordAttach(attachType, outcome string) {
	hm.attachesTotal.WithLabelValues(attachType, outcome).Inc()
}

// RecordDetach records a detach attempt and its outcome.
func (hm *HierarchyMetrics) RecordDetach(attachType, outcome string) {
	hm.detachesTotal.WithLabelValues(attachType, outcome).Inc()
}

// ObservePropagation records how many descendants a propagation updated.
func (hm *HierarchyMetrics) ObservePropagation(nodes int) {
	hm.propagatedNodes.Observe(float64(nodes))
}

// SetEnabledPrograms updates the attached-program gauge.
func (hm *HierarchyMetrics) SetEnabledPrograms(n int64) {
	hm.enabledPrograms.Set(float64(n))
}

// SetNodes updates the live-node gauge.
func (hm *HierarchyMetrics) SetNodes(n int) {
	hm.nodes.Set(float64(n))
}
