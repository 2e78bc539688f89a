// Package trace records pipeline stage events off the hot path. Recording
// never blocks article processing: events go through a bounded buffer and a
// background goroutine flushes them in batches. Under pressure the oldest
// buffered event is dropped in favor of the newest.
package trace

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsflow/internal/domain"
	"github.com/kailas-cloud/newsflow/internal/metrics"
)

// Sink persists event batches for one article.
type Sink interface {
	Append(ctx context.Context, articleID string, events []domain.StageEvent) error
}

const (
	flushBatchSize = 64
	flushInterval  = time.Second
	flushTimeout   = 5 * time.Second
)

// Recorder buffers stage events and flushes them asynchronously. The buffer
// channel is never closed; Close sets a flag under the lock so concurrent
// Record calls can race shutdown without panicking.
type Recorder struct {
	sink   Sink
	ch     chan domain.StageEvent
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
	logger *zap.Logger
}

// New creates a recorder with the given buffer size and starts its flush
// goroutine.
func New(sink Sink, buffer int, logger *zap.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 1024
	}
	r := &Recorder{
		sink:   sink,
		ch:     make(chan domain.StageEvent, buffer),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go r.flushLoop()
	return r
}

// Record queues an event without blocking. When the buffer is full the oldest
// buffered event is evicted to make room; if the event still cannot be queued,
// or the recorder is already closed, it is counted as dropped.
func (r *Recorder) Record(ev domain.StageEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.TraceEventsDroppedTotal.Inc()
		return
	}

	select {
	case r.ch <- ev:
		return
	default:
	}

	// evict one and retry once
	select {
	case <-r.ch:
		metrics.TraceEventsDroppedTotal.Inc()
	default:
	}
	select {
	case r.ch <- ev:
	default:
		metrics.TraceEventsDroppedTotal.Inc()
	}
}

// Close drains the buffer and stops the flush goroutine. Events recorded
// after Close are dropped.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		// The write lock waits out in-flight Record sends, so nothing is
		// queued after stop is signalled.
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.stop)
	})
	<-r.done
	return nil
}

func (r *Recorder) flushLoop() {
	defer close(r.done)

	batch := make([]domain.StageEvent, 0, flushBatchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-r.ch:
			batch = append(batch, ev)
			if len(batch) >= flushBatchSize {
				r.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flushBatch(batch)
				batch = batch[:0]
			}
		case <-r.stop:
			// drain what Record queued before the closed flag was set
			for {
				select {
				case ev := <-r.ch:
					batch = append(batch, ev)
				default:
					r.flushBatch(batch)
					return
				}
			}
		}
	}
}

func (r *Recorder) flushBatch(batch []domain.StageEvent) {
	if len(batch) == 0 {
		return
	}

	// group by article, preserving per-article order
	grouped := make(map[string][]domain.StageEvent)
	order := make([]string, 0, len(batch))
	for _, ev := range batch {
		if _, seen := grouped[ev.ArticleID]; !seen {
			order = append(order, ev.ArticleID)
		}
		grouped[ev.ArticleID] = append(grouped[ev.ArticleID], ev)
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	for _, articleID := range order {
		if err := r.sink.Append(ctx, articleID, grouped[articleID]); err != nil {
			r.logger.Error("Failed to flush stage events",
				zap.String("article_id", articleID),
				zap.Int("count", len(grouped[articleID])),
				zap.Error(err))
		}
	}
}
