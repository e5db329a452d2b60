package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "dbus-client", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, BusAddress("unix:path=/tmp/bus"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("BusAddress", func(t *testing.T) {
		attr := BusAddress("unix:path=/run/dbus/system_bus_socket")
		assert.Equal(t, AttrBusAddress, string(attr.Key))
		assert.Equal(t, "unix:path=/run/dbus/system_bus_socket", attr.Value.AsString())
	})

	t.Run("UniqueName", func(t *testing.T) {
		attr := UniqueName(":1.42")
		assert.Equal(t, AttrUniqueName, string(attr.Key))
		assert.Equal(t, ":1.42", attr.Value.AsString())
	})

	t.Run("Serial", func(t *testing.T) {
		attr := Serial(0x12345678)
		assert.Equal(t, AttrSerial, string(attr.Key))
		assert.Equal(t, int64(0x12345678), attr.Value.AsInt64())
	})

	t.Run("Member", func(t *testing.T) {
		attr := Member("Ping")
		assert.Equal(t, AttrMember, string(attr.Key))
		assert.Equal(t, "Ping", attr.Value.AsString())
	})

	t.Run("Flags", func(t *testing.T) {
		attr := Flags(0x01)
		assert.Equal(t, AttrFlags, string(attr.Key))
		assert.Equal(t, "0x01", attr.Value.AsString())
	})

	t.Run("Signature", func(t *testing.T) {
		attr := Signature("a{sv}")
		assert.Equal(t, AttrSignature, string(attr.Key))
		assert.Equal(t, "a{sv}", attr.Value.AsString())
	})

	t.Run("Path", func(t *testing.T) {
		attr := Path("/org/freedesktop/DBus")
		assert.Equal(t, AttrPath, string(attr.Key))
		assert.Equal(t, "/org/freedesktop/DBus", attr.Value.AsString())
	})

	t.Run("ReplySerial", func(t *testing.T) {
		attr := ReplySerial(1024)
		assert.Equal(t, AttrReplySerial, string(attr.Key))
		assert.Equal(t, int64(1024), attr.Value.AsInt64())
	})

	t.Run("BodyLength", func(t *testing.T) {
		attr := BodyLength(4096)
		assert.Equal(t, AttrBodyLength, string(attr.Key))
		assert.Equal(t, int64(4096), attr.Value.AsInt64())
	})

	t.Run("Attempt", func(t *testing.T) {
		attr := Attempt(3)
		assert.Equal(t, AttrAttempt, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("ConsecutiveFailures", func(t *testing.T) {
		attr := ConsecutiveFailures(0)
		assert.Equal(t, AttrConsecutiveFailures, string(attr.Key))
		assert.Equal(t, int64(0), attr.Value.AsInt64())
	})

	t.Run("Interface", func(t *testing.T) {
		attr := Interface("org.freedesktop.DBus.Peer")
		assert.Equal(t, AttrInterface, string(attr.Key))
		assert.Equal(t, "org.freedesktop.DBus.Peer", attr.Value.AsString())
	})

	t.Run("Destination", func(t *testing.T) {
		attr := Destination("org.freedesktop.DBus")
		assert.Equal(t, AttrDestination, string(attr.Key))
		assert.Equal(t, "org.freedesktop.DBus", attr.Value.AsString())
	})

	t.Run("Sender", func(t *testing.T) {
		attr := Sender(":1.7")
		assert.Equal(t, AttrSender, string(attr.Key))
		assert.Equal(t, ":1.7", attr.Value.AsString())
	})

	t.Run("MessageType", func(t *testing.T) {
		attr := MessageType("method_call")
		assert.Equal(t, AttrMessageType, string(attr.Key))
		assert.Equal(t, "method_call", attr.Value.AsString())
	})

	t.Run("ErrorName", func(t *testing.T) {
		attr := ErrorName("org.freedesktop.DBus.Error.Failed")
		assert.Equal(t, AttrErrorName, string(attr.Key))
		assert.Equal(t, "org.freedesktop.DBus.Error.Failed", attr.Value.AsString())
	})

	t.Run("Mechanism", func(t *testing.T) {
		attr := Mechanism("EXTERNAL")
		assert.Equal(t, AttrMechanism, string(attr.Key))
		assert.Equal(t, "EXTERNAL", attr.Value.AsString())
	})

	t.Run("ConnectionState", func(t *testing.T) {
		attr := ConnectionState("CONNECTED")
		assert.Equal(t, AttrState, string(attr.Key))
		assert.Equal(t, "CONNECTED", attr.Value.AsString())
	})

	t.Run("Backoff", func(t *testing.T) {
		attr := Backoff("500ms")
		assert.Equal(t, AttrBackoff, string(attr.Key))
		assert.Equal(t, "500ms", attr.Value.AsString())
	})
}

func TestStartMethodCallSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartMethodCallSpan(ctx, "org.freedesktop.DBus.Peer", "Ping", "org.freedesktop.DBus")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With empty destination
	newCtx2, span2 := StartMethodCallSpan(ctx, "org.freedesktop.DBus.Peer", "GetMachineId", "")
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()

	// With additional attributes
	newCtx3, span3 := StartMethodCallSpan(ctx, "org.freedesktop.DBus.Properties", "Get", "org.freedesktop.DBus", Serial(1), BodyLength(4096))
	require.NotNil(t, newCtx3)
	require.NotNil(t, span3)
	span3.End()
}

func TestStartDialSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartDialSpan(ctx, "unix:path=/run/dbus/system_bus_socket")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartDialSpan(ctx, "tcp:host=localhost,port=12345", Mechanism("EXTERNAL"), UniqueName(":1.1"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartHealthProbeSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartHealthProbeSpan(ctx)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartHealthProbeSpan(ctx, ConsecutiveFailures(0))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
