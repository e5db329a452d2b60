package dbus

import "github.com/marmos91/dittofs/pkg/dbus/types"

// Event values carried through Conn's inbound and outbound handler
// pipelines (internal/pipeline), matching the event kinds named in the
// handler pipeline design: inbound handlers see InboundMessage,
// InboundFailure, ConnectionActive, ConnectionInactive, and UserEvent;
// outbound handlers see OutboundMessage (with its completion signal)
// and OutboundFailure.

// InboundMessage carries one decoded message arriving from the wire.
type InboundMessage struct {
	Msg *types.Message
}

// InboundFailure reports that the read side of the connection failed;
// it is dispatched once, immediately before ConnectionInactive.
type InboundFailure struct {
	Cause error
}

// ConnectionActive is dispatched once Hello has returned the
// connection's unique name and the connection has become CONNECTED.
type ConnectionActive struct{}

// ConnectionInactive is dispatched when the connection stops serving
// traffic, whether from a read failure or an explicit Close.
type ConnectionInactive struct{}

// UserEvent carries an application-defined tag through the inbound
// pipeline; it is never produced by Conn itself, only by handlers that
// want to notify other handlers further down the chain.
type UserEvent struct {
	Tag string
}

// OutboundMessage carries a message to be written to the wire.
// CompletionSignal, if non-nil, receives the write error (nil on
// success) once the message has reached the wire-writer handler.
type OutboundMessage struct {
	Msg              *types.Message
	CompletionSignal chan<- error
}

// OutboundFailure is dispatched through the outbound pipeline after a
// write to the wire fails, so handlers registered ahead of the
// wire-writer can observe it without inspecting Call's return value.
type OutboundFailure struct {
	Cause error
}
