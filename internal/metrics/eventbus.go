// internal/metrics/eventbus.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rovshanmuradov/pumpbot/internal/events"
)

// EventBusSource is sampled on every scrape.
type EventBusSource interface {
	Stats() events.Stats
}

type eventBusCollector struct {
	source  EventBusSource
	events  *prometheus.Desc
	pending *prometheus.Desc
}

// WatchEventBus exposes the bus counters and queue depth. Calling it twice
// panics, like any duplicate registration.
func (c *Collector) WatchEventBus(source EventBusSource) {
	c.registry.MustRegister(&eventBusCollector{
		source: source,
		events: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event_bus", "events_total"),
			"Events offered to the bus by outcome",
			[]string{"outcome"}, nil),
		pending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "event_bus", "pending_events"),
			"Events queued and not yet dispatched",
			nil, nil),
	})
}

func (e *eventBusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.events
	ch <- e.pending
}

func (e *eventBusCollector) Collect(ch chan<- prometheus.Metric) {
	stats := e.source.Stats()
	ch <- prometheus.MustNewConstMetric(e.events, prometheus.CounterValue, float64(stats.Published), "published")
	ch <- prometheus.MustNewConstMetric(e.events, prometheus.CounterValue, float64(stats.Dropped), "dropped")
	ch <- prometheus.MustNewConstMetric(e.events, prometheus.CounterValue, float64(stats.Rejected), "rejected")
	ch <- prometheus.MustNewConstMetric(e.pending, prometheus.GaugeValue, float64(stats.Pending))
}
