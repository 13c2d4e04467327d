package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HubMetrics collects counters and gauges for the chat hub:
//   - Users online and logins/removals
//   - Records dispatched per command
//   - Bytes routed to clients
//   - Worker count and listening-socket handoffs
//
// All methods are safe on a no-op instance, so callers never need to
// check whether collection is enabled.
type HubMetrics struct {
	enabled bool

	usersOnline       prometheus.Gauge
	logins            *prometheus.CounterVec
	removals          prometheus.Counter
	recordsDispatched *prometheus.CounterVec
	bytesRouted       prometheus.Counter
	workersRunning    prometheus.Gauge
	handoffs          *prometheus.CounterVec
}

// Noop returns a HubMetrics that records nothing.
func Noop() *HubMetrics {
	return &HubMetrics{}
}

// NewHubMetrics creates a Prometheus-backed HubMetrics instance.
//
// Returns a no-op instance if metrics are not enabled (InitRegistry not
// called).
func NewHubMetrics() *HubMetrics {
	if !IsEnabled() {
		return Noop()
	}

	reg := GetRegistry()

	return &HubMetrics{
		enabled: true,
		usersOnline: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "fbhub_users_online",
				Help: "Current number of logged-in users across all workers",
			},
		),
		logins: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbhub_logins_total",
				Help: "Total completed logins by registration tier",
			},
			[]string{"tier"},
		),
		removals: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "fbhub_removals_total",
				Help: "Total connections removed",
			},
		),
		recordsDispatched: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbhub_records_dispatched_total",
				Help: "Total protocol records dispatched by command",
			},
			[]string{"command"},
		),
		bytesRouted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "fbhub_bytes_routed_total",
				Help: "Total bytes queued for delivery to connections",
			},
		),
		workersRunning: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "fbhub_workers_running",
				Help: "Current number of serving workers",
			},
		),
		handoffs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbhub_listen_handoffs_total",
				Help: "Listening-socket handoff attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// UserLoggedIn records a completed login at the given tier name.
func (m *HubMetrics) UserLoggedIn(tier string) {
	if !m.enabled {
		return
	}
	m.usersOnline.Inc()
	m.logins.WithLabelValues(tier).Inc()
}

// UserRemoved records a connection removal after login.
func (m *HubMetrics) UserRemoved() {
	if !m.enabled {
		return
	}
	m.usersOnline.Dec()
	m.removals.Inc()
}

// RecordDispatched counts one dispatched record for a command verb.
func (m *HubMetrics) RecordDispatched(command string) {
	if !m.enabled {
		return
	}
	m.recordsDispatched.WithLabelValues(command).Inc()
}

// BytesRouted counts bytes queued toward connections.
func (m *HubMetrics) BytesRouted(n int) {
	if !m.enabled {
		return
	}
	m.bytesRouted.Add(float64(n))
}

// WorkerStarted and WorkerStopped track the serving-worker gauge.
func (m *HubMetrics) WorkerStarted() {
	if !m.enabled {
		return
	}
	m.workersRunning.Inc()
}

func (m *HubMetrics) WorkerStopped() {
	if !m.enabled {
		return
	}
	m.workersRunning.Dec()
}

// HandoffResult records one listening-socket handoff attempt.
// outcome is "accepted", "rejected" or "spawned".
func (m *HubMetrics) HandoffResult(outcome string) {
	if !m.enabled {
		return
	}
	m.handoffs.WithLabelValues(outcome).Inc()
}
