// Package metrics collects and exposes Prometheus metrics for the realtime
// delivery path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector instruments the notification hub and its push channels.
type Collector struct {
	broadcasts *prometheus.CounterVec
	delivered  prometheus.Counter
	dropped    prometheus.Counter
	evicted    prometheus.Counter
	channels   prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharelist_broadcasts_total",
			Help: "Broadcast events fanned out, by event type.",
		}, []string{"type"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharelist_deliveries_total",
			Help: "Messages written to subscriber channels.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharelist_dropped_total",
			Help: "Messages dropped because a subscriber channel buffer was full.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharelist_channels_evicted_total",
			Help: "Dead channels unregistered as a side effect of broadcast.",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sharelist_channels_open",
			Help: "Currently registered push channels across all lists.",
		}),
	}

	reg.MustRegister(c.broadcasts, c.delivered, c.dropped, c.evicted, c.channels)
	return c
}

func (c *Collector) RecordBroadcast(eventType string) {
	c.broadcasts.WithLabelValues(eventType).Inc()
}

func (c *Collector) RecordDelivery() { c.delivered.Inc() }
func (c *Collector) RecordDrop()     { c.dropped.Inc() }
func (c *Collector) RecordEviction() { c.evicted.Inc() }
func (c *Collector) ChannelOpened()  { c.channels.Inc() }
func (c *Collector) ChannelClosed()  { c.channels.Dec() }

// Handler returns the HTTP handler serving the given registry.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
