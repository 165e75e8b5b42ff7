// Package scan applies usage accounting off the redirect hot path.
package scan

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/koda/internal/metrics"
	"github.com/erazemk/koda/internal/model"
	"github.com/erazemk/koda/internal/store"
)

// DefaultQueueSize bounds the number of scans waiting to be recorded.
const DefaultQueueSize = 1024

// recordTimeout bounds each store write so a stuck database cannot wedge
// the worker.
const recordTimeout = 5 * time.Second

// Event is one resolved scan awaiting recording. The resolver hands over
// exactly one event per resolution, which is what keeps the counter
// at-most-once: nothing here ever retries a failed increment.
type Event struct {
	CodeID        string
	OccurredAt    time.Time
	ClientContext string
}

// Recorder drains a bounded queue of scan events into the store. The
// redirect path only ever touches Enqueue, which never blocks.
type Recorder struct {
	db    *sql.DB
	queue chan Event
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewRecorder starts a recorder with the given queue size (0 means
// DefaultQueueSize).
func NewRecorder(db *sql.DB, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	r := &Recorder{
		db:    db,
		queue: make(chan Event, queueSize),
		done:  make(chan struct{}),
	}
	go r.run()
	return r
}

// Enqueue hands one scan event to the recorder. It returns false, dropping
// the event with a warning, when the queue is full or the recorder is
// closed; the redirect has already been served either way.
func (r *Recorder) Enqueue(ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		metrics.ScansDropped.Add(1)
		slog.Warn("scan event dropped, recorder closed", "code_id", ev.CodeID)
		return false
	}

	select {
	case r.queue <- ev:
		return true
	default:
		metrics.ScansDropped.Add(1)
		slog.Warn("scan event dropped, queue full", "code_id", ev.CodeID)
		return false
	}
}

// Close stops accepting events, drains the queue, and waits for the worker.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.queue {
		r.record(ev)
	}
}

// record applies a single event. Failures are logged and the event is
// dropped: retrying would risk double-counting a scan that was partially
// applied.
func (r *Recorder) record(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	err := store.RecordScan(ctx, r.db, ev.CodeID, ev.OccurredAt, ev.ClientContext)
	switch {
	case err == nil:
		metrics.ScansRecorded.Add(1)
	case errors.Is(err, model.ErrNotFound):
		// Code deleted between resolution and recording; nothing to count.
		slog.Info("scan event for vanished code", "code_id", ev.CodeID)
	default:
		metrics.RecordFailures.Add(1)
		slog.Error("failed to record scan", "code_id", ev.CodeID, "error", err)
	}
}
