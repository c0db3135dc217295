// Package metrics exposes draft activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements lobby.Recorder plus the connection counters the ws
// layer reports.
type Collector struct {
	commands     *prometheus.CounterVec
	clients      prometheus.Gauge
	dropped      prometheus.Counter
	throttled    prometheus.Counter
	badFrames    prometheus.Counter
	sessionReset prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "draft_commands_total",
			Help: "Draft commands by type and outcome.",
		}, []string{"command", "outcome"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "draft_connected_clients",
			Help: "Websocket connections attached to the active draft.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draft_dropped_clients_total",
			Help: "Connections dropped because their outbox was full.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draft_throttled_messages_total",
			Help: "Inbound messages rejected by the per-connection rate limit.",
		}),
		badFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draft_bad_frames_total",
			Help: "Inbound frames that could not be decoded.",
		}),
		sessionReset: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "draft_session_resets_total",
			Help: "Times the draft session was replaced.",
		}),
	}

	reg.MustRegister(
		c.commands,
		c.clients,
		c.dropped,
		c.throttled,
		c.badFrames,
		c.sessionReset,
	)
	return c
}

func (c *Collector) RecordCommand(cmd string, outcome string) {
	c.commands.WithLabelValues(cmd, outcome).Inc()
}

func (c *Collector) SetConnectedClients(n int) { c.clients.Set(float64(n)) }

func (c *Collector) RecordDroppedClient() { c.dropped.Inc() }

func (c *Collector) RecordThrottled() { c.throttled.Inc() }

func (c *Collector) RecordBadFrame() { c.badFrames.Inc() }

func (c *Collector) RecordSessionReset() { c.sessionReset.Inc() }

// Handler serves the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
