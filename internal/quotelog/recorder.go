package quotelog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Recorder queues entries and writes them to a Store from a single worker.
// Record never blocks; entries are dropped when the queue is full.
type Recorder struct {
	store   Store
	logger  *zap.Logger
	queue   chan *Entry
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

func NewRecorder(store Store, logger *zap.Logger, queueSize int) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger,
		queue:   make(chan *Entry, queueSize),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// Record enqueues an entry. It reports whether the entry was accepted.
func (r *Recorder) Record(entry *Entry) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}

	select {
	case r.queue <- entry:
		return true
	default:
		r.dropped.Add(1)
		r.logger.Warn("quote log queue full, dropping entry",
			zap.String("request_id", entry.RequestID),
		)
		return false
	}
}

// Run drains the queue until Close is called. Run it in its own goroutine.
func (r *Recorder) Run() {
	defer close(r.done)
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.store.Log(ctx, entry); err != nil {
			r.logger.Error("failed to write quote log",
				zap.String("request_id", entry.RequestID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting entries and waits for the queue to drain or ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
