// ABOUTME: Prometheus metrics for playback sessions and discovery
// ABOUTME: Collector implements the session manager's metrics hook on a private registry
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "radiodeck"

// Collector holds the application metrics
type Collector struct {
	registry *prometheus.Registry

	sessionsStarted   prometheus.Counter
	sessionsCommitted prometheus.Counter
	sessionsStale     prometheus.Counter
	sessionFailures   *prometheus.CounterVec
	disconnectFails   prometheus.Counter
	sessionActive     prometheus.Gauge
	stationsFound     prometheus.Counter
}

// NewCollector registers every metric on a fresh registry, alongside the
// Go runtime and process collectors
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Start requests accepted",
		}),
		sessionsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_committed_total",
			Help:      "Sessions that reached playing",
		}),
		sessionsStale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_superseded_total",
			Help:      "Start requests abandoned because a newer request arrived",
		}),
		sessionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_failures_total",
			Help:      "Sessions that failed, by stage",
		}, []string{"reason"}),
		disconnectFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_disconnect_failures_total",
			Help:      "Audio nodes that failed to disconnect during teardown",
		}),
		sessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_active",
			Help:      "1 while a session is playing",
		}),
		stationsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovered_stations_total",
			Help:      "Streams found by LAN discovery",
		}),
	}

	c.registry.MustRegister(
		c.sessionsStarted,
		c.sessionsCommitted,
		c.sessionsStale,
		c.sessionFailures,
		c.disconnectFails,
		c.sessionActive,
		c.stationsFound,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the registry for serving and tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) SessionStarted()   { c.sessionsStarted.Inc() }
func (c *Collector) SessionCommitted() { c.sessionsCommitted.Inc() }
func (c *Collector) SessionStale()     { c.sessionsStale.Inc() }
func (c *Collector) DisconnectFailed() { c.disconnectFails.Inc() }
func (c *Collector) StationFound()     { c.stationsFound.Inc() }

func (c *Collector) SessionFailed(reason string) {
	c.sessionFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) SetActive(active bool) {
	if active {
		c.sessionActive.Set(1)
		return
	}
	c.sessionActive.Set(0)
}
