package metric

import "github.com/prometheus/client_golang/prometheus"

// WorkerStats is a point-in-time view of the persistence worker.
type WorkerStats struct {
	State           string
	EventsProcessed uint64
}

// WorkerStates lists every state the worker can report, so the state
// gauge always exports a full set of series.
var WorkerStates = []string{"stopped", "starting", "listening", "reconnecting", "stopping"}

// Collector samples worker state on every scrape.
type Collector struct {
	stats     func() WorkerStats
	stateDesc *prometheus.Desc
	eventDesc *prometheus.Desc
}

// NewCollector creates a collector backed by stats.
func NewCollector(stats func() WorkerStats) *Collector {
	return &Collector{
		stats: stats,
		stateDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "worker", "state"),
			"Current persistence worker state (1 for the active state).",
			[]string{"state"}, nil,
		),
		eventDesc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "worker", "events_processed_total"),
			"Session expiry events the worker has finished processing.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stateDesc
	ch <- c.eventDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	for _, state := range WorkerStates {
		v := 0.0
		if state == s.State {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(c.stateDesc, prometheus.GaugeValue, v, state)
	}
	ch <- prometheus.MustNewConstMetric(c.eventDesc, prometheus.CounterValue, float64(s.EventsProcessed))
}
