package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercator-hq/callisto/pkg/config"
)

// Collector owns the Prometheus registry and the component metric sets.
type Collector struct {
	config    *config.MetricsConfig
	registry  *prometheus.Registry
	Hierarchy *HierarchyMetrics
	Filter    *FilterMetrics
}

// NewCollector creates a collector with all component metrics registered.
// If registry is nil a fresh one is created with the standard Go and
// process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		config:    cfg,
		registry:  registry,
		Hierarchy: NewHierarchyMetrics(cfg, registry),
		Filter:    NewFilterMetrics(cfg, registry),
	}
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the exposition handler for the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
