package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the session hub.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	commandsTotal        *prometheus.CounterVec
	framesSentTotal      prometheus.Counter
	framesDroppedTotal   prometheus.Counter
	broadcastErrorsTotal prometheus.Counter
	connections          prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	commandsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "synchub_commands_total",
		Help: "Total number of hub commands dequeued, by kind",
	}, []string{"kind"})
	framesSentTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "synchub_frames_sent_total",
		Help: "Total number of frames handed to connection outbound buffers",
	})
	framesDroppedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "synchub_frames_dropped_total",
		Help: "Total number of frames dropped because a receiver was gone or full",
	})
	broadcastErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "synchub_broadcast_errors_total",
		Help: "Total number of broadcast failures routed to the escalation policy",
	})
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "synchub_connections",
		Help: "Number of live transport connections",
	})

	registry.MustRegister(
		commandsTotal,
		framesSentTotal,
		framesDroppedTotal,
		broadcastErrorsTotal,
		connections,
	)

	return &Metrics{
		registry:             registry,
		commandsTotal:        commandsTotal,
		framesSentTotal:      framesSentTotal,
		framesDroppedTotal:   framesDroppedTotal,
		broadcastErrorsTotal: broadcastErrorsTotal,
		connections:          connections,
	}
}

func (m *Metrics) IncCommand(kind string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncFramesSent() {
	if m == nil {
		return
	}
	m.framesSentTotal.Inc()
}

func (m *Metrics) IncFramesDropped() {
	if m == nil {
		return
	}
	m.framesDroppedTotal.Inc()
}

func (m *Metrics) IncBroadcastErrors() {
	if m == nil {
		return
	}
	m.broadcastErrorsTotal.Inc()
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.connections.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
