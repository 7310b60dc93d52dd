package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"asset-reservation-backend/internal/reservation"
)

// maxBatch bounds how many queued events one worker writes in a single insert.
const maxBatch = 32

// drainTimeout bounds the final flush after the pool is told to stop.
const drainTimeout = 5 * time.Second

// EventWriter persists audit events.
type EventWriter interface {
	AppendEvents(ctx context.Context, events []reservation.Event) error
}

// WorkerPool writes reservation lifecycle events in the background. It
// implements reservation.EventSink.
type WorkerPool struct {
	size   int
	jobs   chan reservation.Event
	writer EventWriter
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with a queue of queueSize events.
func NewWorkerPool(size, queueSize int, writer EventWriter, logger *slog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize <= 0 {
		queueSize = size
	}
	return &WorkerPool{
		size:   size,
		jobs:   make(chan reservation.Event, queueSize),
		writer: writer,
		logger: logger,
	}
}

// Start launches the worker goroutines. They stop when ctx is cancelled,
// after flushing whatever is still queued.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.logger.Debug("audit worker started", "worker", id)
	for {
		select {
		case ev := <-wp.jobs:
			wp.write(ctx, wp.collect(ev))
		case <-ctx.Done():
			wp.drain()
			wp.logger.Debug("audit worker shutting down", "worker", id)
			return
		}
	}
}

// Publish queues ev without blocking. When the queue is full the event is
// dropped and a warning logged; reservation operations never wait on audit.
func (wp *WorkerPool) Publish(ev reservation.Event) {
	select {
	case wp.jobs <- ev:
	default:
		wp.logger.Warn("audit queue full, dropping event",
			"kind", string(ev.Kind), "reservation_id", uint64(ev.ReservationID))
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan reservation.Event {
	return wp.jobs
}

// collect appends to first whatever else is already queued, up to maxBatch.
func (wp *WorkerPool) collect(first reservation.Event) []reservation.Event {
	batch := []reservation.Event{first}
	for len(batch) < maxBatch {
		select {
		case ev := <-wp.jobs:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}

func (wp *WorkerPool) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case ev := <-wp.jobs:
			wp.write(ctx, wp.collect(ev))
		default:
			return
		}
	}
}

func (wp *WorkerPool) write(ctx context.Context, batch []reservation.Event) {
	if err := wp.writer.AppendEvents(ctx, batch); err != nil {
		wp.logger.Error("failed to write audit events", "count", len(batch), "error", err)
	}
}
