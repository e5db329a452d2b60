// Package pipeline implements the connection's inbound message handler
// chain as a slab of fixed-index entries rather than a pointer-chasing
// doubly linked list, per the redesign called for when an equivalent
// structure ties handler identity to heap pointers.
//
// Structural mutation (Add*, Remove) takes the write lock; Dispatch takes
// the read lock only for the duration of building an immutable snapshot of
// the active chain, then runs handlers outside any lock so a handler that
// itself calls back into the pipeline cannot deadlock.
package pipeline

import (
	"fmt"
	"sync"
)

// Handler processes one inbound value and returns true if it fully handled
// it (stopping the chain) or false to let the next handler see it.
type Handler func(v any) (handled bool, err error)

const freeSentinel = -1

type entry struct {
	name    string
	handler Handler
	next    int // index of next live entry, or -1
	prev    int // index of previous live entry, or -1
}

// Pipeline is a named, ordered chain of Handlers backed by a slab: each
// handler occupies a stable index for its lifetime, so removing one entry
// never invalidates another's identity the way splicing a linked list node
// out from under a concurrent reader can.
type Pipeline struct {
	mu       sync.RWMutex
	entries  []entry   // index -> entry; freed slots are re-used via freeList
	freeList []int
	byName   map[string]int
	head     int // index of first live entry, or -1
	tail     int // index of last live entry, or -1
}

// New returns an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{
		byName: make(map[string]int),
		head:   freeSentinel,
		tail:   freeSentinel,
	}
}

// AddLast appends a named handler to the end of the chain.
func (p *Pipeline) AddLast(name string, h Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byName[name]; exists {
		return fmt.Errorf("pipeline: handler %q already registered", name)
	}
	idx := p.alloc(name, h)
	if p.tail == freeSentinel {
		p.head = idx
		p.tail = idx
		p.entries[idx].prev = freeSentinel
		p.entries[idx].next = freeSentinel
		return nil
	}
	p.entries[idx].prev = p.tail
	p.entries[idx].next = freeSentinel
	p.entries[p.tail].next = idx
	p.tail = idx
	return nil
}

// AddBefore inserts a named handler immediately before an existing one.
func (p *Pipeline) AddBefore(existing, name string, h Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byName[name]; exists {
		return fmt.Errorf("pipeline: handler %q already registered", name)
	}
	anchor, ok := p.byName[existing]
	if !ok {
		return fmt.Errorf("pipeline: handler %q not found", existing)
	}
	idx := p.alloc(name, h)
	prev := p.entries[anchor].prev
	p.entries[idx].prev = prev
	p.entries[idx].next = anchor
	p.entries[anchor].prev = idx
	if prev == freeSentinel {
		p.head = idx
	} else {
		p.entries[prev].next = idx
	}
	return nil
}

// Replace swaps the handler function registered under name, keeping its
// position in the chain.
func (p *Pipeline) Replace(name string, h Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("pipeline: handler %q not found", name)
	}
	p.entries[idx].handler = h
	return nil
}

// Remove unlinks a named handler from the chain and frees its slab slot
// for reuse.
func (p *Pipeline) Remove(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("pipeline: handler %q not found", name)
	}
	e := p.entries[idx]
	if e.prev == freeSentinel {
		p.head = e.next
	} else {
		p.entries[e.prev].next = e.next
	}
	if e.next == freeSentinel {
		p.tail = e.prev
	} else {
		p.entries[e.next].prev = e.prev
	}
	p.entries[idx] = entry{next: freeSentinel, prev: freeSentinel}
	delete(p.byName, name)
	p.freeList = append(p.freeList, idx)
	return nil
}

func (p *Pipeline) alloc(name string, h Handler) int {
	var idx int
	if n := len(p.freeList); n > 0 {
		idx = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		p.entries[idx] = entry{name: name, handler: h}
	} else {
		idx = len(p.entries)
		p.entries = append(p.entries, entry{name: name, handler: h})
	}
	p.byName[name] = idx
	return idx
}

// Dispatch runs v through the chain head to tail, stopping at the first
// handler that returns handled=true or a non-nil error.
func (p *Pipeline) Dispatch(v any) error {
	chain := p.snapshot()
	for _, h := range chain {
		handled, err := h(v)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	return nil
}

// snapshot copies the current chain's handler funcs under the read lock so
// Dispatch can run them without holding it.
func (p *Pipeline) snapshot() []Handler {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Handler
	for i := p.head; i != freeSentinel; i = p.entries[i].next {
		out = append(out, p.entries[i].handler)
	}
	return out
}

// Names returns the handler names in chain order, for diagnostics.
func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []string
	for i := p.head; i != freeSentinel; i = p.entries[i].next {
		out = append(out, p.entries[i].name)
	}
	return out
}
