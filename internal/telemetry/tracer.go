package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for bus operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Connection attributes
	// ========================================================================
	AttrBusAddress  = "dbus.address"
	AttrUniqueName  = "dbus.unique_name"
	AttrState       = "dbus.connection_state"
	AttrMechanism   = "dbus.sasl.mechanism"

	// ========================================================================
	// Message attributes
	// ========================================================================
	AttrMessageType = "dbus.message_type"
	AttrSerial      = "dbus.serial"
	AttrReplySerial = "dbus.reply_serial"
	AttrPath        = "dbus.path"
	AttrInterface   = "dbus.interface"
	AttrMember      = "dbus.member"
	AttrDestination = "dbus.destination"
	AttrSender      = "dbus.sender"
	AttrSignature   = "dbus.signature"
	AttrErrorName   = "dbus.error_name"
	AttrBodyLength  = "dbus.body_length"
	AttrFlags       = "dbus.flags"

	// ========================================================================
	// Reconnection/health attributes
	// ========================================================================
	AttrAttempt              = "dbus.reconnect.attempt"
	AttrBackoff               = "dbus.reconnect.backoff"
	AttrConsecutiveFailures  = "dbus.health.consecutive_failures"
)

// Span names for operations.
const (
	// ========================================================================
	// Connection lifecycle spans
	// ========================================================================
	SpanDial          = "dbus.dial"
	SpanSASLHandshake = "dbus.sasl.handshake"
	SpanHello         = "dbus.hello"
	SpanReconnect     = "dbus.reconnect"
	SpanHealthProbe   = "dbus.health_probe"

	// ========================================================================
	// Message exchange spans
	// ========================================================================
	SpanMethodCall   = "dbus.method_call"
	SpanSignalEmit   = "dbus.signal_emit"
	SpanDispatch     = "dbus.dispatch"
	SpanEncodeBody   = "dbus.encode_body"
	SpanDecodeBody   = "dbus.decode_body"
)

// BusAddress returns an attribute for the server address used to dial.
func BusAddress(addr string) attribute.KeyValue {
	return attribute.String(AttrBusAddress, addr)
}

// UniqueName returns an attribute for this connection's assigned unique name.
func UniqueName(name string) attribute.KeyValue {
	return attribute.String(AttrUniqueName, name)
}

// ConnectionState returns an attribute for the connection state machine value.
func ConnectionState(state string) attribute.KeyValue {
	return attribute.String(AttrState, state)
}

// Mechanism returns an attribute for the SASL mechanism name.
func Mechanism(name string) attribute.KeyValue {
	return attribute.String(AttrMechanism, name)
}

// MessageType returns an attribute for a message's type name.
func MessageType(t string) attribute.KeyValue {
	return attribute.String(AttrMessageType, t)
}

// Serial returns an attribute for an outbound message serial.
func Serial(serial uint32) attribute.KeyValue {
	return attribute.Int64(AttrSerial, int64(serial))
}

// ReplySerial returns an attribute for an inbound REPLY_SERIAL field.
func ReplySerial(serial uint32) attribute.KeyValue {
	return attribute.Int64(AttrReplySerial, int64(serial))
}

// Path returns an attribute for an object path.
func Path(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

// Interface returns an attribute for an interface name.
func Interface(name string) attribute.KeyValue {
	return attribute.String(AttrInterface, name)
}

// Member returns an attribute for a method or signal name.
func Member(name string) attribute.KeyValue {
	return attribute.String(AttrMember, name)
}

// Destination returns an attribute for a message's target bus name.
func Destination(name string) attribute.KeyValue {
	return attribute.String(AttrDestination, name)
}

// Sender returns an attribute for a message's sender unique name.
func Sender(name string) attribute.KeyValue {
	return attribute.String(AttrSender, name)
}

// Signature returns an attribute for a body type signature.
func Signature(sig string) attribute.KeyValue {
	return attribute.String(AttrSignature, sig)
}

// ErrorName returns an attribute for a D-Bus wire error name.
func ErrorName(name string) attribute.KeyValue {
	return attribute.String(AttrErrorName, name)
}

// BodyLength returns an attribute for an encoded message body length.
func BodyLength(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrBodyLength, int64(n))
}

// Flags returns an attribute for a message's header flags, hex-encoded.
func Flags(flags byte) attribute.KeyValue {
	return attribute.String(AttrFlags, fmt.Sprintf("0x%02x", flags))
}

// Attempt returns an attribute for a reconnect attempt number.
func Attempt(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempt, n)
}

// Backoff returns an attribute for the current reconnect backoff, formatted.
func Backoff(s string) attribute.KeyValue {
	return attribute.String(AttrBackoff, s)
}

// ConsecutiveFailures returns an attribute for a health probe failure streak.
func ConsecutiveFailures(n int) attribute.KeyValue {
	return attribute.Int(AttrConsecutiveFailures, n)
}

// StartMethodCallSpan starts a span for an outbound method call.
func StartMethodCallSpan(ctx context.Context, iface, member, destination string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Interface(iface),
		Member(member),
		Destination(destination),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanMethodCall, trace.WithAttributes(allAttrs...))
}

// StartDialSpan starts a span for connecting and authenticating to a bus.
func StartDialSpan(ctx context.Context, addr string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		BusAddress(addr),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanDial, trace.WithAttributes(allAttrs...))
}

// StartSASLHandshakeSpan starts a span for the SASL authentication handshake.
func StartSASLHandshakeSpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanSASLHandshake, trace.WithAttributes(attrs...))
}

// StartReconnectSpan starts a span for a reconnection attempt.
func StartReconnectSpan(ctx context.Context, attempt int, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Attempt(attempt),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanReconnect, trace.WithAttributes(allAttrs...))
}

// StartHealthProbeSpan starts a span for a Peer.Ping health probe.
func StartHealthProbeSpan(ctx context.Context, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanHealthProbe, trace.WithAttributes(attrs...))
}

// StartDispatchSpan starts a span for inbound message dispatch through the
// handler pipeline.
func StartDispatchSpan(ctx context.Context, messageType string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		MessageType(messageType),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanDispatch, trace.WithAttributes(allAttrs...))
}
