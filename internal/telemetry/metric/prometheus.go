package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopmate"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Session store
	SessionOps *prometheus.CounterVec // op, result

	// Persistence
	ExpiryEvents     *prometheus.CounterVec // kind
	PersistOutcomes  *prometheus.CounterVec // source, outcome
	PersistDuration  *prometheus.HistogramVec
	WorkerReconnects prometheus.Counter
	SweepRuns        prometheus.Counter
	SweepOrphans     prometheus.Gauge

	// HTTP
	RequestsTotal   *prometheus.CounterVec // method, route, code
	RequestDuration *prometheus.HistogramVec

	BuildInfo *prometheus.GaugeVec // version, commit, go_version
}

// NewRegistry creates a registry with all application metrics plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{
		registry: reg,
		SessionOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Session store operations by result.",
		}, []string{"op", "result"}),
		ExpiryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "expiry_events_total",
			Help:      "Expired-key notifications received, by kind.",
		}, []string{"kind"}),
		PersistOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "outcomes_total",
			Help:      "Persistence attempts by trigger source and outcome.",
		}, []string{"source", "outcome"}),
		PersistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "persist",
			Name:      "duration_seconds",
			Help:      "Time spent persisting one session.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		WorkerReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reconnects_total",
			Help:      "Backoff cycles entered after a cache connectivity failure.",
		}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Completed orphan sweeps.",
		}),
		SweepOrphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "orphans",
			Help:      "Shadow keys without a volatile key seen by the last sweep.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BuildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Always 1; labels carry the running build.",
		}, []string{"version", "commit", "go_version"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.SessionOps,
		r.ExpiryEvents,
		r.PersistOutcomes,
		r.PersistDuration,
		r.WorkerReconnects,
		r.SweepRuns,
		r.SweepOrphans,
		r.RequestsTotal,
		r.RequestDuration,
		r.BuildInfo,
	)
	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// Handler serves r in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registerer exposes the underlying registry for component collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// SessionOp counts one session store operation.
func (r *Registry) SessionOp(op, result string) {
	if r == nil {
		return
	}
	r.SessionOps.WithLabelValues(op, result).Inc()
}

// ExpiryEvent counts one expired-key notification.
func (r *Registry) ExpiryEvent(kind string) {
	if r == nil {
		return
	}
	r.ExpiryEvents.WithLabelValues(kind).Inc()
}

// Persisted records the outcome and latency of one persistence attempt.
func (r *Registry) Persisted(source, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.PersistOutcomes.WithLabelValues(source, outcome).Inc()
	r.PersistDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// Reconnect counts one worker backoff cycle.
func (r *Registry) Reconnect() {
	if r == nil {
		return
	}
	r.WorkerReconnects.Inc()
}

// Swept records a completed sweep.
func (r *Registry) Swept(orphans int) {
	if r == nil {
		return
	}
	r.SweepRuns.Inc()
	r.SweepOrphans.Set(float64(orphans))
}

// Request records one HTTP request.
func (r *Registry) Request(method, route, code string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, code).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SetBuild publishes the running build as shopmate_build_info.
func (r *Registry) SetBuild(version, commit, goVersion string) {
	if r == nil {
		return
	}
	r.BuildInfo.Reset()
	r.BuildInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
