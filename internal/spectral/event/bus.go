package event

import (
	"context"
	"errors"
	"sync"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

var ErrBusClosed = errors.New("processing bus is closed")

// Bus carries processing tasks from the record-creation path to the
// processing consumer. Fire-and-forget: the publisher does not wait for the
// task to run.
type Bus struct {
	mu     sync.RWMutex
	closed bool
	ch     chan entity.ProcessingTask
}

func NewBus(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}

	return &Bus{
		ch: make(chan entity.ProcessingTask, buffer),
	}
}

func (b *Bus) Publish(ctx context.Context, task entity.ProcessingTask) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}

	select {
	case b.ch <- task:
		b.mu.RUnlock()
		return nil
	case <-ctx.Done():
		b.mu.RUnlock()
		return ctx.Err()
	}
}

func (b *Bus) Subscribe() <-chan entity.ProcessingTask {
	return b.ch
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
