package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging across the connection
// runtime, wire codec, and SASL handshake. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Message Addressing
	// ========================================================================
	KeySerial      = "serial"       // Outbound message serial
	KeyReplySerial = "reply_serial" // REPLY_SERIAL header field of an inbound reply
	KeyMessageType = "message_type" // METHOD_CALL, METHOD_RETURN, ERROR, SIGNAL
	KeyPath        = "path"         // Object path
	KeyInterface   = "interface"    // Interface name
	KeyMember      = "member"       // Method or signal name
	KeyDestination = "destination"  // Target bus name of an outbound message
	KeySender      = "sender"       // Unique name of the message's sender
	KeySignature   = "signature"    // Body type signature
	KeyErrorName   = "error_name"   // D-Bus error name (org.freedesktop.DBus.Error.*)
	KeyUniqueName  = "unique_name"  // This connection's unique name, assigned by Hello

	// ========================================================================
	// Connection Lifecycle
	// ========================================================================
	KeyState               = "state"                // Connection state machine value
	KeyMechanism           = "mechanism"             // SASL mechanism name
	KeyAddress             = "address"               // D-Bus server address
	KeyAttempt             = "attempt"                // Reconnect/retry attempt number
	KeyMaxRetries          = "max_retries"            // Maximum retry attempts
	KeyBackoff             = "backoff"                // Current reconnect backoff duration
	KeyConsecutiveFailures = "consecutive_failures" // Health probe failure streak

	// ========================================================================
	// Wire Sizes
	// ========================================================================
	KeyBodyLength         = "body_length"          // Encoded body length in bytes
	KeyHeaderFieldsLength = "header_fields_length" // Encoded header fields array length

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric/symbolic error code
	KeySource     = "source"      // Originating component
	KeyOperation  = "operation"   // Sub-operation type for complex operations
)

// TraceID returns a slog.Attr for the OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Serial returns a slog.Attr for an outbound message serial.
func Serial(s uint32) slog.Attr { return slog.Any(KeySerial, s) }

// ReplySerial returns a slog.Attr for an inbound REPLY_SERIAL field.
func ReplySerial(s uint32) slog.Attr { return slog.Any(KeyReplySerial, s) }

// MessageType returns a slog.Attr for a message's type name.
func MessageType(t string) slog.Attr { return slog.String(KeyMessageType, t) }

// Path returns a slog.Attr for an object path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Interface returns a slog.Attr for an interface name.
func Interface(i string) slog.Attr { return slog.String(KeyInterface, i) }

// Member returns a slog.Attr for a method or signal name.
func Member(m string) slog.Attr { return slog.String(KeyMember, m) }

// Destination returns a slog.Attr for an outbound message's target bus name.
func Destination(d string) slog.Attr { return slog.String(KeyDestination, d) }

// Sender returns a slog.Attr for a message's sender unique name.
func Sender(s string) slog.Attr { return slog.String(KeySender, s) }

// Signature returns a slog.Attr for a body type signature.
func Signature(sig string) slog.Attr { return slog.String(KeySignature, sig) }

// ErrorName returns a slog.Attr for a D-Bus wire error name.
func ErrorName(name string) slog.Attr { return slog.String(KeyErrorName, name) }

// UniqueName returns a slog.Attr for this connection's assigned unique name.
func UniqueName(name string) slog.Attr { return slog.String(KeyUniqueName, name) }

// State returns a slog.Attr for the connection's lifecycle state.
func State(s string) slog.Attr { return slog.String(KeyState, s) }

// Mechanism returns a slog.Attr for a SASL mechanism name.
func Mechanism(name string) slog.Attr { return slog.String(KeyMechanism, name) }

// Address returns a slog.Attr for a D-Bus server address.
func Address(addr string) slog.Attr { return slog.String(KeyAddress, addr) }

// Attempt returns a slog.Attr for a retry attempt number.
func Attempt(n int) slog.Attr { return slog.Int(KeyAttempt, n) }

// MaxRetries returns a slog.Attr for the maximum retry attempts.
func MaxRetries(n int) slog.Attr { return slog.Int(KeyMaxRetries, n) }

// Backoff returns a slog.Attr for the current reconnect backoff.
func Backoff(d fmt.Stringer) slog.Attr { return slog.String(KeyBackoff, d.String()) }

// ConsecutiveFailures returns a slog.Attr for a health probe failure streak.
func ConsecutiveFailures(n int) slog.Attr { return slog.Int(KeyConsecutiveFailures, n) }

// BodyLength returns a slog.Attr for an encoded body length.
func BodyLength(n uint32) slog.Attr { return slog.Any(KeyBodyLength, n) }

// HeaderFieldsLength returns a slog.Attr for an encoded header fields array length.
func HeaderFieldsLength(n uint32) slog.Attr { return slog.Any(KeyHeaderFieldsLength, n) }

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a numeric/symbolic error code.
func ErrorCode(code string) slog.Attr { return slog.String(KeyErrorCode, code) }

// Source returns a slog.Attr for the originating component.
func Source(src string) slog.Attr { return slog.String(KeySource, src) }

// Operation returns a slog.Attr for a sub-operation type.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }
