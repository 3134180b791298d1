package canbus

import (
	"context"
	"sync"
	"time"
)

// LoopbackBus is an in-memory bus segment for tests and simulations. Every
// endpoint opened from it hears the frames sent by every other endpoint,
// like nodes sharing one physical segment.
type LoopbackBus struct {
	mu    sync.RWMutex
	ports map[int]*loopPort
	next  int
	dead  bool
}

// NewLoopbackBus creates an empty bus segment.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{ports: make(map[int]*loopPort)}
}

// Open attaches a new endpoint. Opening on a closed bus returns an endpoint
// that fails every operation with ErrClosed.
func (b *LoopbackBus) Open() Bus {
	p := &loopPort{
		bus:  b,
		rx:   make(chan Frame, 64),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead {
		p.detachLocked()
		return p
	}
	p.id = b.next
	b.next++
	b.ports[p.id] = p
	return p
}

// Close detaches every endpoint and marks the bus dead.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead {
		return nil
	}
	b.dead = true
	for _, p := range b.ports {
		p.detachLocked()
	}
	b.ports = nil
	return nil
}

// peersOf returns every attached endpoint except the sender.
func (b *LoopbackBus) peersOf(sender *loopPort) ([]*loopPort, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.dead {
		return nil, ErrClosed
	}
	peers := make([]*loopPort, 0, len(b.ports))
	for _, p := range b.ports {
		if p != sender {
			peers = append(peers, p)
		}
	}
	return peers, nil
}

type loopPort struct {
	bus *LoopbackBus
	id  int
	rx  chan Frame

	mu       sync.Mutex
	detached bool
	done     chan struct{}
}

// Send validates the frame, stamps it with the delivery time, and queues it
// to every other endpoint. Peers are snapshotted first so no lock is held
// while a slow receiver blocks the send.
func (p *loopPort) Send(ctx context.Context, frame Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if p.isDetached() {
		return ErrClosed
	}
	peers, err := p.bus.peersOf(p)
	if err != nil {
		return err
	}
	frame.Timestamp = time.Now()
	for _, peer := range peers {
		select {
		case peer.rx <- frame:
		case <-peer.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Receive waits for the next frame. Frames still queued when the endpoint
// detaches are discarded.
func (p *loopPort) Receive(ctx context.Context) (Frame, error) {
	select {
	case f := <-p.rx:
		return f, nil
	case <-p.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close detaches the endpoint from the bus.
func (p *loopPort) Close() error {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	if p.bus.ports != nil {
		delete(p.bus.ports, p.id)
	}
	p.detachLocked()
	return nil
}

func (p *loopPort) isDetached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detached
}

// detachLocked requires the bus lock (or exclusive ownership of a port that
// was never attached).
func (p *loopPort) detachLocked() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.detached {
		return
	}
	p.detached = true
	close(p.done)
}
