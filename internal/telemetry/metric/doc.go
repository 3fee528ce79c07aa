// Package metric provides Prometheus metrics for shopmate.
//
//   - prometheus.go: the metric registry and the /metrics handler
//   - collector.go: a collector that samples persistence worker state
//
// All recording helpers are safe to call on a nil *Registry, so
// components can run without metrics in tests.
package metric
