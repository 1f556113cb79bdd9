package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/casehall-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}

// NewMemoryBus delivers events to in-process forwarders only. It backs
// single-instance deployments without Redis.
func NewMemoryBus() Bus {
	return &memoryBus{}
}

type memoryBus struct {
	mu       sync.RWMutex
	handlers []func(realtime.Event)
	closed   bool
}

func (b *memoryBus) Publish(_ context.Context, ev realtime.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus closed")
	}
	for _, h := range b.handlers {
		h(ev)
	}
	return nil
}

func (b *memoryBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("bus closed")
	}
	idx := len(b.handlers)
	b.handlers = append(b.handlers, onEvent)
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if idx < len(b.handlers) {
			b.handlers[idx] = func(realtime.Event) {}
		}
		b.mu.Unlock()
	}()
	return nil
}

func (b *memoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = nil
	return nil
}
