// Package dbus implements the client-side D-Bus connection runtime: dialing
// a transport, running the SASL handshake, exchanging framed messages, and
// correlating replies to calls by serial.
package dbus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/dittofs/internal/frame"
	"github.com/marmos91/dittofs/internal/pipeline"
	"github.com/marmos91/dittofs/internal/sasl"
	"github.com/marmos91/dittofs/internal/telemetry"
	"github.com/marmos91/dittofs/internal/transport"
	"github.com/marmos91/dittofs/internal/wire"
	"github.com/marmos91/dittofs/pkg/dbus/dbuserrors"
	"github.com/marmos91/dittofs/pkg/dbus/types"
	"github.com/marmos91/dittofs/pkg/registry"
)

// Options configures a Conn.
type Options struct {
	// Address is a D-Bus address string; if empty, Dial uses
	// DBUS_SESSION_BUS_ADDRESS.
	Address string

	// Mechanisms, tried in order, authenticates the connection. If empty,
	// a default EXTERNAL/DBUS_COOKIE_SHA1/ANONYMOUS chain is used.
	Mechanisms []sasl.Mechanism

	// CallTimeout bounds how long Call waits for a reply before failing
	// with dbuserrors.CodeNoReply. Zero means no timeout.
	CallTimeout time.Duration

	// HealthCheckInterval is how often the health prober sends
	// Peer.Ping. Zero disables health probing.
	HealthCheckInterval time.Duration

	// MaxOutstandingHealthFailures is how many consecutive failed health
	// probes move the connection to StateUnhealthy.
	MaxOutstandingHealthFailures int

	// Logger receives structured diagnostics. A no-op logger is used if
	// nil.
	Logger *slog.Logger

	// Registry holds the exported objects this connection answers
	// METHOD_CALLs against (beyond the built-in Peer interface). A fresh
	// empty Registry is used if nil.
	Registry *registry.Registry
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Registry == nil {
		o.Registry = registry.New()
	}
	if len(o.Mechanisms) == 0 {
		o.Mechanisms = []sasl.Mechanism{
			sasl.External{},
			sasl.Cookie{},
			sasl.Anonymous{},
		}
	}
}

// Conn is a single, possibly reconnecting, client connection to a D-Bus
// bus. One goroutine (readLoop) owns the underlying socket; all outbound
// writes are serialized through writeMu.
type Conn struct {
	opts Options
	log  *slog.Logger

	netConn net.Conn

	writeMu sync.Mutex
	serials serialAllocator
	pending *pendingTable

	state *stateMachine

	uniqueName string

	handlers *methodHandlers

	// inbound and outbound are the handler pipelines the connection's
	// read loop and send path drive. Both dispatch head-to-tail. The
	// outbound pipeline's built-in wire-writer handler is installed
	// first; user handlers added with AddBefore("wire-writer", ...) sit
	// ahead of it and so run before the message is actually written.
	inbound  *pipeline.Pipeline
	outbound *pipeline.Pipeline

	health healthProber

	closeOnce sync.Once
	closed    chan struct{}
}

const wireWriterHandlerName = "wire-writer"

// newConn allocates a Conn with its pipelines and built-in handlers
// installed, but does not dial or authenticate. Used by Dial, and by
// tests that need to drive a Conn over a pre-established net.Conn.
func newConn(opts Options) *Conn {
	c := &Conn{
		opts:     opts,
		log:      opts.Logger,
		pending:  newPendingTable(),
		state:    newStateMachine(StateConnecting),
		handlers: newMethodHandlers(opts.Registry),
		inbound:  pipeline.New(),
		outbound: pipeline.New(),
		closed:   make(chan struct{}),
	}
	c.installDefaultHandlers()
	return c
}

// installDefaultHandlers registers the built-in handlers that give Conn
// its baseline behavior: reply correlation, method dispatch, and signal
// logging on the inbound side; writing to the wire on the outbound
// side. Callers may add their own handlers around these with
// AddBefore/AddLast on InboundPipeline/OutboundPipeline.
func (c *Conn) installDefaultHandlers() {
	_ = c.inbound.AddLast("reply-correlator", c.handleReplyCorrelation)
	_ = c.inbound.AddLast("method-dispatcher", c.handleMethodDispatch)
	_ = c.inbound.AddLast("signal-logger", c.handleSignalLog)
	_ = c.inbound.AddLast("lifecycle-logger", c.handleLifecycleEvent)
	_ = c.outbound.AddLast(wireWriterHandlerName, c.handleWireWrite)
}

// InboundPipeline returns the connection's inbound handler pipeline, so
// callers can register additional handlers for message/failure/
// connection_active/connection_inactive/user_event events ahead of the
// built-in ones.
func (c *Conn) InboundPipeline() *pipeline.Pipeline { return c.inbound }

// OutboundPipeline returns the connection's outbound handler pipeline.
// Additional handlers must be registered with
// AddBefore("wire-writer", name, handler) to run before the message is
// written to the wire.
func (c *Conn) OutboundPipeline() *pipeline.Pipeline { return c.outbound }

func (c *Conn) handleReplyCorrelation(v any) (bool, error) {
	m, ok := v.(InboundMessage)
	if !ok {
		return false, nil
	}
	msg := m.Msg
	if msg.Header.Type != types.TypeMethodReturn && msg.Header.Type != types.TypeError {
		return false, nil
	}
	if msg.Header.HasReplySerial() && c.pending.complete(msg.Header.ReplySerial, msg) {
		return true, nil
	}
	c.log.Debug("dbus: reply with no matching pending call", "reply_serial", msg.Header.ReplySerial)
	return true, nil
}

func (c *Conn) handleMethodDispatch(v any) (bool, error) {
	m, ok := v.(InboundMessage)
	if !ok || m.Msg.Header.Type != types.TypeMethodCall {
		return false, nil
	}
	c.handlers.dispatch(c, m.Msg)
	return true, nil
}

func (c *Conn) handleSignalLog(v any) (bool, error) {
	m, ok := v.(InboundMessage)
	if !ok || m.Msg.Header.Type != types.TypeSignal {
		return false, nil
	}
	c.log.Debug("dbus: signal received", "interface", m.Msg.Header.Interface, "member", m.Msg.Header.Member)
	return true, nil
}

func (c *Conn) handleLifecycleEvent(v any) (bool, error) {
	switch v.(type) {
	case ConnectionActive:
		c.log.Info("dbus: connection active")
		return true, nil
	case ConnectionInactive:
		c.log.Info("dbus: connection inactive")
		return true, nil
	}
	return false, nil
}

func (c *Conn) handleWireWrite(v any) (bool, error) {
	m, ok := v.(OutboundMessage)
	if !ok {
		return false, nil
	}
	c.writeMu.Lock()
	err := frame.WriteMessage(c.netConn, wire.LittleEndian, m.Msg)
	c.writeMu.Unlock()
	if m.CompletionSignal != nil {
		m.CompletionSignal <- err
	}
	return true, nil
}

// Dial connects to opts.Address (or the session bus default), runs the
// SASL handshake, sends Hello, and starts the background read loop and
// health prober. The returned Conn is ready for Call/Send.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	opts.setDefaults()

	ctx, dialSpan := telemetry.StartSpan(ctx, "dbus.Dial")
	defer dialSpan.End()

	addrStr := opts.Address
	if addrStr == "" {
		var ok bool
		addrStr, ok = transport.SessionBusAddress()
		if !ok {
			return nil, fmt.Errorf("dbus: no address given and DBUS_SESSION_BUS_ADDRESS is unset")
		}
	}
	addrs, err := transport.ParseAddresses(addrStr)
	if err != nil {
		return nil, err
	}

	c := newConn(opts)

	netConn, err := transport.Dial(addrs)
	if err != nil {
		c.state.Set(StateFailed)
		return nil, fmt.Errorf("dbus: dial: %w", err)
	}
	c.netConn = netConn

	c.state.Set(StateAuthenticating)
	_, saslSpan := telemetry.StartSpan(ctx, "dbus.sasl.Authenticate")
	client := sasl.NewClient(netConn, opts.Mechanisms...)
	mech, err := client.Authenticate()
	if err != nil {
		telemetry.RecordError(ctx, err)
		saslSpan.End()
		netConn.Close()
		c.state.Set(StateFailed)
		return nil, dbuserrors.NewAuthFailedError("%v", err)
	}
	telemetry.SetAttributes(ctx, attribute.String("dbus.sasl.mechanism", mech))
	saslSpan.End()
	c.log.Info("dbus: sasl handshake complete", "mechanism", mech)

	go c.readLoop()

	if err := c.hello(ctx); err != nil {
		c.Close()
		return nil, err
	}

	// The connection only becomes CONNECTED once Hello has returned our
	// unique name, per the mandatory-name handler in the connection
	// runtime design.
	c.state.Set(StateConnected)
	if dispErr := c.inbound.Dispatch(ConnectionActive{}); dispErr != nil {
		c.log.Warn("dbus: connection_active handler error", "error", dispErr)
	}

	if opts.HealthCheckInterval > 0 {
		c.health = newHealthProber(c, opts.HealthCheckInterval, opts.MaxOutstandingHealthFailures)
		go c.health.run(c.closed)
	}

	// Per-call timeout expiry runs on its own ticker so CallTimeout is
	// enforced even when health probing (which used to drive the same
	// sweep) is disabled; the two are independent per-Options settings.
	if opts.CallTimeout > 0 {
		go c.expireLoop()
	}

	return c, nil
}

// expireLoop periodically sweeps the pending-reply table for calls whose
// CallTimeout deadline has passed, independent of whether health probing
// is enabled.
func (c *Conn) expireLoop() {
	interval := c.opts.CallTimeout / 10
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	if interval > time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case now := <-ticker.C:
			c.pending.expireOverdue(now)
		}
	}
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() State { return c.state.Get() }

// UniqueName returns the unique connection name assigned by Hello, e.g.
// ":1.42".
func (c *Conn) UniqueName() string { return c.uniqueName }

// Close shuts down the connection: the read loop exits, all pending calls
// fail with CodeDisconnected, and the underlying socket is closed.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Set(StateDisconnected)
		close(c.closed)
		c.pending.failAll()
		if dispErr := c.inbound.Dispatch(ConnectionInactive{}); dispErr != nil {
			c.log.Warn("dbus: connection_inactive handler error", "error", dispErr)
		}
		if c.netConn != nil {
			err = c.netConn.Close()
		}
	})
	return err
}

// send writes msg to the wire, assigning it the next serial if Serial is
// still 0. It runs msg through the outbound pipeline head-to-tail (any
// handler registered ahead of the built-in wire-writer sees it before
// the wire-writer actually does the write) and waits for the
// wire-writer's completion signal.
func (c *Conn) send(msg *types.Message) error {
	if msg.Header.Serial == 0 {
		msg.Header.Serial = c.serials.Next()
	}
	done := make(chan error, 1)
	if err := c.outbound.Dispatch(OutboundMessage{Msg: msg, CompletionSignal: done}); err != nil {
		return err
	}
	err := <-done
	if err != nil {
		if dispErr := c.outbound.Dispatch(OutboundFailure{Cause: err}); dispErr != nil {
			c.log.Warn("dbus: outbound failure handler error", "error", dispErr)
		}
	}
	return err
}

// Call sends a METHOD_CALL and blocks until its METHOD_RETURN/ERROR
// arrives, the context is cancelled, or opts.CallTimeout elapses.
func (c *Conn) Call(ctx context.Context, destination string, path types.ObjectPath, iface, member string, body []any) ([]any, error) {
	if c.state.Get() != StateConnected && c.state.Get() != StateUnhealthy {
		return nil, dbuserrors.NewDisconnectedError("connection is %s", c.state.Get())
	}
	return c.call(ctx, destination, path, iface, member, body)
}

// call is Call without the lifecycle-state guard, used during the Hello
// exchange, which must run while the connection is still AUTHENTICATING.
func (c *Conn) call(ctx context.Context, destination string, path types.ObjectPath, iface, member string, body []any) ([]any, error) {
	ctx, span := telemetry.StartSpan(ctx, "dbus.Call")
	defer span.End()
	telemetry.SetAttributes(ctx,
		attribute.String("dbus.destination", destination),
		attribute.String("dbus.interface", iface),
		attribute.String("dbus.member", member),
	)

	serial := c.serials.Next()
	msg := &types.Message{
		Header: types.Header{
			Type:        types.TypeMethodCall,
			Path:        path,
			Interface:   iface,
			Member:      member,
			Destination: destination,
			Serial:      serial,
		},
		Body: body,
	}

	var deadline time.Time
	if c.opts.CallTimeout > 0 {
		deadline = time.Now().Add(c.opts.CallTimeout)
	}
	replyCh := c.pending.register(serial, deadline)

	if err := c.send(msg); err != nil {
		c.pending.cancel(serial)
		err = dbuserrors.NewDisconnectedError("write method call: %v", err)
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	select {
	case reply, ok := <-replyCh:
		if !ok {
			err := dbuserrors.NewDisconnectedError("connection closed while waiting for reply to serial %d", serial)
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		if reply == nil {
			err := dbuserrors.NewNoReplyError(serial)
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		if reply.Header.Type == types.TypeError {
			msg := ""
			if len(reply.Body) > 0 {
				if s, ok := reply.Body[0].(string); ok {
					msg = s
				}
			}
			err := dbuserrors.FromWireError(reply.Header.ErrorName, msg)
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		return reply.Body, nil
	case <-ctx.Done():
		c.pending.cancel(serial)
		telemetry.RecordError(ctx, ctx.Err())
		return nil, ctx.Err()
	}
}

// Signal broadcasts a SIGNAL message; signals never receive a reply.
func (c *Conn) Signal(path types.ObjectPath, iface, member string, body []any) error {
	msg := &types.Message{
		Header: types.Header{
			Type:      types.TypeSignal,
			Path:      path,
			Interface: iface,
			Member:    member,
		},
		Body: body,
	}
	return c.send(msg)
}

// readLoop owns the socket for reads: it decodes one frame at a time and
// dispatches it, exiting (and marking the connection failed) on the first
// read error.
func (c *Conn) readLoop() {
	for {
		msg, err := frame.ReadMessage(c.netConn)
		if err != nil {
			select {
			case <-c.closed:
				return
			default:
			}
			c.log.Warn("dbus: read loop terminating", "error", err)
			c.state.Set(StateFailed)
			c.pending.failAll()
			if dispErr := c.inbound.Dispatch(InboundFailure{Cause: err}); dispErr != nil {
				c.log.Warn("dbus: inbound failure handler error", "error", dispErr)
			}
			if dispErr := c.inbound.Dispatch(ConnectionInactive{}); dispErr != nil {
				c.log.Warn("dbus: connection_inactive handler error", "error", dispErr)
			}
			return
		}
		if dispErr := c.inbound.Dispatch(InboundMessage{Msg: msg}); dispErr != nil {
			c.log.Warn("dbus: inbound handler error", "error", dispErr)
		}
	}
}
