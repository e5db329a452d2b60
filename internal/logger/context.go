package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single method
// call or signal dispatch flowing through the connection.
type LogContext struct {
	TraceID     string    // OpenTelemetry trace ID
	SpanID      string    // OpenTelemetry span ID
	Serial      uint32    // Outbound message serial, once allocated
	Interface   string    // Interface name
	Member      string    // Method or signal name
	Destination string    // Target bus name
	StartTime   time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a call to the given
// interface/member pair.
func NewLogContext(iface, member string) *LogContext {
	return &LogContext{
		Interface: iface,
		Member:    member,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:     lc.TraceID,
		SpanID:      lc.SpanID,
		Serial:      lc.Serial,
		Interface:   lc.Interface,
		Member:      lc.Member,
		Destination: lc.Destination,
		StartTime:   lc.StartTime,
	}
}

// WithSerial returns a copy with the message serial set
func (lc *LogContext) WithSerial(serial uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Serial = serial
	}
	return clone
}

// WithDestination returns a copy with the destination bus name set
func (lc *LogContext) WithDestination(destination string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Destination = destination
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
