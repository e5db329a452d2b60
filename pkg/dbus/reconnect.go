package dbus

import (
	"context"
	"time"
)

// ReconnectOptions configures automatic reconnection after the connection
// enters StateFailed.
type ReconnectOptions struct {
	// Enabled turns on the background reconnect loop.
	Enabled bool
	// InitialBackoff is the delay before the first reconnect attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff between attempts.
	MaxBackoff time.Duration
}

func (o ReconnectOptions) withDefaults() ReconnectOptions {
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	return o
}

// Reconnector watches a Conn for StateFailed and re-dials with the same
// Options, replacing the caller's reference via the supplied callback so
// application code always has the live Conn.
type Reconnector struct {
	opts   Options
	reopts ReconnectOptions
	onNew  func(*Conn)
}

// NewReconnector returns a Reconnector that will redial with opts whenever
// the connection it is watching fails, invoking onNew with the
// replacement Conn each time a redial succeeds.
func NewReconnector(opts Options, reopts ReconnectOptions, onNew func(*Conn)) *Reconnector {
	return &Reconnector{opts: opts, reopts: reopts.withDefaults(), onNew: onNew}
}

// Watch blocks, monitoring conn's state, until ctx is cancelled. On
// StateFailed it transitions conn to StateReconnecting and retries Dial
// with exponential backoff until a new Conn is established, then repeats
// for the new Conn.
func (r *Reconnector) Watch(ctx context.Context, conn *Conn) {
	for {
		state, changed := conn.state.WaitChan()
		if state == StateFailed {
			conn.state.Set(StateReconnecting)
			next, ok := r.reconnectUntilSuccess(ctx)
			if !ok {
				return
			}
			conn = next
			if r.onNew != nil {
				r.onNew(conn)
			}
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

func (r *Reconnector) reconnectUntilSuccess(ctx context.Context) (*Conn, bool) {
	backoff := r.reopts.InitialBackoff
	for {
		select {
		case <-ctx.Done():
			return nil, false
		default:
		}

		redialed, err := Dial(ctx, r.opts)
		if err == nil {
			return redialed, true
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > r.reopts.MaxBackoff {
			backoff = r.reopts.MaxBackoff
		}
	}
}
