// Package metrics exposes Prometheus instrumentation for a bus connection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks connection-runtime Prometheus metrics.
//
// All metrics use the dbus_ prefix. Every method is safe to call on a
// nil *Metrics, so instrumentation can be wired unconditionally and
// disabled by simply not constructing a Metrics instance.
type Metrics struct {
	// CallsTotal counts completed method calls by interface, member and result.
	CallsTotal *prometheus.CounterVec

	// CallDuration tracks method call round-trip latency.
	CallDuration *prometheus.HistogramVec

	// SignalsEmittedTotal counts outbound signal emissions by interface and member.
	SignalsEmittedTotal *prometheus.CounterVec

	// MessagesReceivedTotal counts inbound messages by message type.
	MessagesReceivedTotal *prometheus.CounterVec

	// PendingCalls tracks the number of outstanding method calls awaiting a reply.
	PendingCalls prometheus.Gauge

	// DispatchDuration tracks handler pipeline dispatch latency.
	DispatchDuration prometheus.Histogram

	// ReconnectsTotal counts reconnection attempts by result.
	ReconnectsTotal *prometheus.CounterVec

	// HealthProbeFailuresTotal counts failed health probes.
	HealthProbeFailuresTotal prometheus.Counter

	// ConnectionState is 1 when connected, 0 otherwise.
	ConnectionState prometheus.Gauge
}

// New creates connection metrics registered with reg.
//
// Panics if registration fails, which is expected only during
// initialization (e.g. duplicate registration of the same collector).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbus_calls_total",
				Help: "Total method calls by interface, member and result",
			},
			[]string{"interface", "member", "result"},
		),
		CallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dbus_call_duration_seconds",
				Help:    "Method call round-trip duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"interface", "member"},
		),
		SignalsEmittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbus_signals_emitted_total",
				Help: "Total outbound signal emissions by interface and member",
			},
			[]string{"interface", "member"},
		),
		MessagesReceivedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbus_messages_received_total",
				Help: "Total inbound messages by message type",
			},
			[]string{"message_type"},
		),
		PendingCalls: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dbus_pending_calls",
				Help: "Current number of method calls awaiting a reply",
			},
		),
		DispatchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dbus_dispatch_duration_seconds",
				Help:    "Handler pipeline dispatch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ReconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dbus_reconnects_total",
				Help: "Total reconnection attempts by result",
			},
			[]string{"result"}, // "success", "failed"
		),
		HealthProbeFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dbus_health_probe_failures_total",
				Help: "Total failed health probes",
			},
		),
		ConnectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dbus_connection_state",
				Help: "1 when the connection is up, 0 otherwise",
			},
		),
	}

	reg.MustRegister(
		m.CallsTotal,
		m.CallDuration,
		m.SignalsEmittedTotal,
		m.MessagesReceivedTotal,
		m.PendingCalls,
		m.DispatchDuration,
		m.ReconnectsTotal,
		m.HealthProbeFailuresTotal,
		m.ConnectionState,
	)

	return m
}

// RecordCall records a completed method call.
func (m *Metrics) RecordCall(iface, member, result string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.CallsTotal.WithLabelValues(iface, member, result).Inc()
	m.CallDuration.WithLabelValues(iface, member).Observe(durationSeconds)
}

// RecordSignalEmitted records an outbound signal emission.
func (m *Metrics) RecordSignalEmitted(iface, member string) {
	if m == nil {
		return
	}
	m.SignalsEmittedTotal.WithLabelValues(iface, member).Inc()
}

// RecordMessageReceived records an inbound message by type.
func (m *Metrics) RecordMessageReceived(messageType string) {
	if m == nil {
		return
	}
	m.MessagesReceivedTotal.WithLabelValues(messageType).Inc()
}

// SetPendingCalls updates the pending-calls gauge.
func (m *Metrics) SetPendingCalls(n int) {
	if m == nil {
		return
	}
	m.PendingCalls.Set(float64(n))
}

// RecordDispatch records a handler pipeline dispatch duration.
func (m *Metrics) RecordDispatch(durationSeconds float64) {
	if m == nil {
		return
	}
	m.DispatchDuration.Observe(durationSeconds)
}

// RecordReconnect records a reconnection attempt outcome.
func (m *Metrics) RecordReconnect(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failed"
	}
	m.ReconnectsTotal.WithLabelValues(result).Inc()
}

// RecordHealthProbeFailure increments the health probe failure counter.
func (m *Metrics) RecordHealthProbeFailure() {
	if m == nil {
		return
	}
	m.HealthProbeFailuresTotal.Inc()
}

// SetConnected updates the connection-state gauge.
func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.ConnectionState.Set(1)
	} else {
		m.ConnectionState.Set(0)
	}
}

// Null returns nil, which acts as a no-op metrics collector.
// All Metrics methods handle a nil receiver gracefully.
func Null() *Metrics {
	return nil
}
