package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/UniversalScientificTechnologies/DOSPORTAL/internal/spectral/entity"
)

// Handler runs the ingestion state machine for one record.
type Handler interface {
	Handle(ctx context.Context, task entity.ProcessingTask) error
}

type ConsumerConfig struct {
	Workers int
}

// dedupeWindow caps how many event ids the consumer remembers. Redelivery
// happens within a short window of the original publish, so only the most
// recent ids need to be held.
const dedupeWindow = 1024

// dedupe remembers the last dedupeWindow event ids, evicting oldest first.
type dedupe struct {
	mu    sync.Mutex
	cap   int
	seen  map[int64]struct{}
	order []int64
}

func newDedupe(capacity int) *dedupe {
	return &dedupe{
		cap:  capacity,
		seen: make(map[int64]struct{}, capacity),
	}
}

// observe records the id and reports whether it was already present.
func (d *dedupe) observe(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if len(d.order) >= d.cap {
		delete(d.seen, d.order[0])
		d.order = d.order[1:]
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	return false
}

// ProcessingConsumer drains the bus and hands each task to the handler.
// Duplicate task ids are suppressed so a record is processed at most once
// per creation even if a task is redelivered. A failed task is not retried:
// the state machine already marked the record failed and kept the error in
// its metadata, and a failed record stays failed until an operator acts.
type ProcessingConsumer struct {
	bus     *Bus
	handler Handler
	workers int
	seen    *dedupe
	wg      sync.WaitGroup
}

func NewProcessingConsumer(bus *Bus, handler Handler, cfg ConsumerConfig) *ProcessingConsumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}

	return &ProcessingConsumer{
		bus:     bus,
		handler: handler,
		workers: workers,
		seen:    newDedupe(dedupeWindow),
	}
}

func (c *ProcessingConsumer) Start() {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
}

func (c *ProcessingConsumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *ProcessingConsumer) worker() {
	defer c.wg.Done()

	for task := range c.bus.Subscribe() {
		c.processTask(task)
	}
}

func (c *ProcessingConsumer) processTask(task entity.ProcessingTask) {
	if c.handler == nil {
		return
	}

	if task.EventID != 0 && c.seen.observe(task.EventID) {
		slog.Info("skip duplicate processing task", "event_id", task.EventID, "record_id", task.RecordID)
		return
	}

	if err := c.handler.Handle(context.Background(), task); err != nil {
		slog.Error("record processing failed", "event_id", task.EventID, "record_id", task.RecordID, "error", err)
	}
}
