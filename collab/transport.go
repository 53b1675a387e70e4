package collab

import (
	"sync"

	"github.com/anlyetim/TeamPad-sub001/core"
)

// Transport is the abstract send/receive contract the synchronization layer
// depends on. Delivery is best-effort: no ordering or arrival guarantee
// exists across peers, only within a single transport's own delivery order.
type Transport interface {
	// Broadcast hands a message to every peer reachable through this
	// transport, including (for the in-process tier) the sender itself.
	Broadcast(msg *core.Message) error

	// Subscribe registers a handler for inbound messages. Handlers may be
	// invoked from the transport's own goroutine.
	Subscribe(handler func(*core.Message))

	Close() error
}

// LocalBus is the in-process tier: a synchronous pub/sub fan-out used when
// several views share one runtime. Echo suppression is the receiver's job.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []func(*core.Message)
	closed   bool
}

func NewLocalBus() *LocalBus {
	return &LocalBus{}
}

func (b *LocalBus) Broadcast(msg *core.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	handlers := make([]func(*core.Message), len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (b *LocalBus) Subscribe(handler func(*core.Message)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
