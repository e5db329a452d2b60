package dbus

import (
	"sync"
	"time"

	"github.com/marmos91/dittofs/pkg/dbus/dbuserrors"
	"github.com/marmos91/dittofs/pkg/dbus/types"
)

// pendingCall is one outstanding method call awaiting its METHOD_RETURN or
// ERROR, correlated by serial. This is the D-Bus analog of an NFSv4.1
// backchannel reply demux: an inbound message must be matched to its
// outbound request by an id, independent of arrival order, since replies
// are not required to arrive in the order calls were sent.
type pendingCall struct {
	serial  uint32
	done    chan *types.Message
	expires time.Time
}

// pendingTable tracks outstanding calls by serial and expires ones that
// have outlived their deadline.
type pendingTable struct {
	mu      sync.Mutex
	entries map[uint32]*pendingCall
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[uint32]*pendingCall)}
}

// register adds a new pending entry for serial, due to expire at deadline.
// It returns the channel the caller should block on for the reply.
func (t *pendingTable) register(serial uint32, deadline time.Time) <-chan *types.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan *types.Message, 1)
	t.entries[serial] = &pendingCall{serial: serial, done: ch, expires: deadline}
	return ch
}

// complete delivers msg (a METHOD_RETURN or ERROR) to the pending call
// matching msg's REPLY_SERIAL, if one is still outstanding. Returns false
// if no matching pending call exists (a late or unsolicited reply).
func (t *pendingTable) complete(replySerial uint32, msg *types.Message) bool {
	t.mu.Lock()
	call, ok := t.entries[replySerial]
	if ok {
		delete(t.entries, replySerial)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}
	call.done <- msg
	return true
}

// cancel removes a pending entry without delivering a reply, used when the
// caller gives up waiting (context cancellation) before a reply arrives.
func (t *pendingTable) cancel(serial uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, serial)
}

// expireOverdue removes and fails every pending entry whose deadline has
// passed as of now, returning how many were expired. Call periodically
// from the connection's health-probe loop.
func (t *pendingTable) expireOverdue(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var expired []*pendingCall
	for serial, call := range t.entries {
		if !call.expires.IsZero() && now.After(call.expires) {
			expired = append(expired, call)
			delete(t.entries, serial)
		}
	}
	for _, call := range expired {
		call.done <- nil // nil signals timeout to the waiter
	}
	return len(expired)
}

// failAll delivers a disconnection failure to every outstanding call, used
// when the connection drops or is closed with calls still in flight.
func (t *pendingTable) failAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for serial, call := range t.entries {
		delete(t.entries, serial)
		close(call.done)
	}
}

// Len reports the number of outstanding calls. The table has no size
// limit: register never refuses an entry.
func (t *pendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

var errPendingTableFull = dbuserrors.NewLimitsExceededError("too many outstanding method calls")
