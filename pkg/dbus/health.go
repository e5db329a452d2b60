package dbus

import (
	"context"
	"time"
)

// maxConsecutiveHealthFailures bounds how many consecutive probe failures
// the prober tolerates before giving up on the connection entirely and
// declaring it FAILED, rather than probing an unresponsive bus forever.
const maxConsecutiveHealthFailures = 10

// healthProber periodically pings the bus daemon itself
// (org.freedesktop.DBus) via Peer.Ping, moving the connection to
// StateUnhealthy after maxFailures consecutive probe failures, back to
// StateConnected on the next success, or to StateFailed (and stopping)
// once failures reach maxConsecutiveHealthFailures.
type healthProber struct {
	conn        *Conn
	interval    time.Duration
	maxFailures int

	failures int
}

func newHealthProber(c *Conn, interval time.Duration, maxFailures int) healthProber {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	return healthProber{conn: c, interval: interval, maxFailures: maxFailures}
}

func (p *healthProber) run(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			p.conn.pending.expireOverdue(now)
			if !p.probe() {
				return
			}
		}
	}
}

// probe sends one Peer.Ping and updates the connection's state accordingly.
// It returns false once the connection has been declared FAILED, telling
// run to stop probing.
func (p *healthProber) probe() bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	err := p.conn.Ping(ctx, ifaceDBus)
	if err != nil {
		p.failures++
		p.conn.log.Warn("dbus: health probe failed", "consecutive_failures", p.failures, "error", err)
		if p.failures >= maxConsecutiveHealthFailures {
			p.conn.log.Warn("dbus: health probe giving up after consecutive failures", "failures", p.failures)
			p.conn.state.Set(StateFailed)
			p.conn.pending.failAll()
			return false
		}
		if p.failures >= p.maxFailures && p.conn.state.Get() == StateConnected {
			p.conn.state.Set(StateUnhealthy)
		}
		return true
	}

	if p.failures > 0 || p.conn.state.Get() == StateUnhealthy {
		p.conn.log.Info("dbus: health probe recovered")
	}
	p.failures = 0
	if p.conn.state.Get() == StateUnhealthy {
		p.conn.state.Set(StateConnected)
	}
	return true
}
