package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNew_CreatesAllMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.CallsTotal == nil {
		t.Error("CallsTotal not initialized")
	}
	if m.CallDuration == nil {
		t.Error("CallDuration not initialized")
	}
	if m.SignalsEmittedTotal == nil {
		t.Error("SignalsEmittedTotal not initialized")
	}
	if m.MessagesReceivedTotal == nil {
		t.Error("MessagesReceivedTotal not initialized")
	}
	if m.PendingCalls == nil {
		t.Error("PendingCalls not initialized")
	}
	if m.DispatchDuration == nil {
		t.Error("DispatchDuration not initialized")
	}
	if m.ReconnectsTotal == nil {
		t.Error("ReconnectsTotal not initialized")
	}
	if m.HealthProbeFailuresTotal == nil {
		t.Error("HealthProbeFailuresTotal not initialized")
	}
	if m.ConnectionState == nil {
		t.Error("ConnectionState not initialized")
	}
}

func TestRecordCall_IncrementsCounterAndHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordCall("org.freedesktop.DBus.Peer", "Ping", "success", 0.01)
	m.RecordCall("org.freedesktop.DBus.Peer", "Ping", "error", 0.02)

	mfs, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	foundCalls, foundDuration := false, false
	for _, mf := range mfs {
		switch mf.GetName() {
		case "dbus_calls_total":
			foundCalls = true
		case "dbus_call_duration_seconds":
			foundDuration = true
		}
	}
	if !foundCalls {
		t.Error("expected dbus_calls_total metric")
	}
	if !foundDuration {
		t.Error("expected dbus_call_duration_seconds metric")
	}
}

func TestRecordReconnect_LabelsByResult(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordReconnect(true)
	m.RecordReconnect(false)

	mfs, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "dbus_reconnects_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Errorf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("expected dbus_reconnects_total metric")
	}
}

func TestSetConnected_UpdatesGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.SetConnected(true)

	mfs, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() == "dbus_connection_state" {
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 1.0 {
				t.Errorf("expected connection_state=1, got %v", got)
			}
			return
		}
	}
	t.Error("expected dbus_connection_state metric")
}

func TestSetPendingCalls_UpdatesGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.SetPendingCalls(3)

	mfs, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() == "dbus_pending_calls" {
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 3.0 {
				t.Errorf("expected pending_calls=3, got %v", got)
			}
			return
		}
	}
	t.Error("expected dbus_pending_calls metric")
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics

	m.RecordCall("iface", "Member", "success", 0.01)
	m.RecordSignalEmitted("iface", "Member")
	m.RecordMessageReceived("METHOD_CALL")
	m.SetPendingCalls(1)
	m.RecordDispatch(0.001)
	m.RecordReconnect(true)
	m.RecordHealthProbeFailure()
	m.SetConnected(false)
}

func TestNull_ReturnsNil(t *testing.T) {
	if Null() != nil {
		t.Error("expected Null() to return nil")
	}
}
