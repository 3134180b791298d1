package canbus

import (
	"context"
	"sync"
)

// Mux fans frames from one Bus out to any number of filtered subscribers.
//
// A single background goroutine owns Receive, so consumers never compete
// for the bus; each subscriber gets its own buffered channel and a filter
// deciding which frames it sees. Slow subscribers drop frames rather than
// stall the reader. Send is not proxied: transmit on the underlying Bus.
type Mux struct {
	stop context.CancelFunc

	mu     sync.RWMutex
	taps   map[uint64]*tap
	next   uint64
	closed bool
}

type tap struct {
	match FrameFilter
	out   chan Frame
}

// NewMux starts a multiplexer reading from bus. The mux owns the receive
// side of the bus until Close.
func NewMux(bus Bus) *Mux {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Mux{stop: cancel, taps: make(map[uint64]*tap)}
	go m.pump(ctx, bus)
	return m
}

// Subscribe registers a filtered consumer. A nil filter matches everything.
// The returned cancel func closes the channel and unregisters the consumer.
// Subscribing on a closed mux yields an already-closed channel.
func (m *Mux) Subscribe(filter FrameFilter, buffer int) (<-chan Frame, func()) {
	if buffer < 0 {
		buffer = 0
	}
	t := &tap{match: filter, out: make(chan Frame, buffer)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(t.out)
		return t.out, func() {}
	}
	id := m.next
	m.next++
	m.taps[id] = t
	m.mu.Unlock()

	return t.out, func() { m.drop(id, t) }
}

// Close stops the reader and closes every subscriber channel.
func (m *Mux) Close() error {
	m.stop()
	m.dropAll()
	return nil
}

func (m *Mux) drop(id uint64, t *tap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.taps[id]; ok && cur == t {
		close(cur.out)
		delete(m.taps, id)
	}
}

func (m *Mux) dropAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for id, t := range m.taps {
		close(t.out)
		delete(m.taps, id)
	}
}

func (m *Mux) pump(ctx context.Context, bus Bus) {
	for {
		f, err := bus.Receive(ctx)
		if err != nil {
			// Bus gone or mux closed; either way subscribers are done.
			m.dropAll()
			return
		}
		m.mu.RLock()
		for _, t := range m.taps {
			if t.match != nil && !t.match(f) {
				continue
			}
			select {
			case t.out <- f:
			default: // subscriber is behind, drop
			}
		}
		m.mu.RUnlock()
	}
}
