// Package metrics provides Prometheus instrumentation for Callisto.
//
// A Collector owns the registry and the exposition handler; component
// metric sets (HierarchyMetrics for the control plane, FilterMetrics for
// the hot path) register against it and are handed to the components that
// record into them.
//
// Metric names follow the pattern <namespace>_<subsystem>_<name>, with a
// per-component subsystem ("hierarchy", "filter").
package metrics
