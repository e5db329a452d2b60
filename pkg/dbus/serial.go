package dbus

import "sync/atomic"

// serialAllocator hands out monotonically increasing, nonzero u32 message
// serials. 0 is never a legitimate serial value on the wire (it is used
// sentinel-style to mean "no REPLY_SERIAL"), so allocation must skip it
// both on first use and on wraparound.
type serialAllocator struct {
	next atomic.Uint32
}

// Next returns the next serial to use for an outbound message.
func (a *serialAllocator) Next() uint32 {
	for {
		v := a.next.Add(1)
		if v != 0 {
			return v
		}
		// v wrapped to exactly 0; loop to draw the next value instead.
	}
}
