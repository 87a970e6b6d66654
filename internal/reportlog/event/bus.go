package event

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

var (
	ErrBusClosed = errors.New("delivery bus is closed")
	ErrBusFull   = errors.New("delivery bus is full")
)

// Bus queues aggregated payloads between request goroutines and the delivery
// workers. It never blocks a request: a full queue drops the payload.
type Bus struct {
	mu      sync.RWMutex
	closed  bool
	ch      chan entity.LogPayload
	dropped atomic.Int64
}

func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}

	return &Bus{
		ch: make(chan entity.LogPayload, buffer),
	}
}

// Dispatch enqueues payload without waiting.
func (b *Bus) Dispatch(_ context.Context, payload entity.LogPayload) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.dropped.Add(1)
		return ErrBusClosed
	}

	select {
	case b.ch <- payload:
		return nil
	default:
		b.dropped.Add(1)
		return ErrBusFull
	}
}

func (b *Bus) Subscribe() <-chan entity.LogPayload {
	return b.ch
}

// Pending is the number of queued payloads.
func (b *Bus) Pending() int {
	return len(b.ch)
}

// Dropped counts payloads refused because the bus was full or closed.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	close(b.ch)
}
