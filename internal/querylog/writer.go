package querylog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/garyellow/unibot-go/internal/metrics"
)

const (
	defaultBufferSize    = 1024
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second
	sinkWriteTimeout     = 10 * time.Second
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBufferSize sets how many records may wait before Log starts dropping.
func WithBufferSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.bufferSize = n
		}
	}
}

// WithBatchSize caps the number of records per sink call.
func WithBatchSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithFlushInterval sets how often a partial batch is flushed.
func WithFlushInterval(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

// WithMetrics reports per-sink outcomes.
func WithMetrics(m *metrics.Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// Writer batches records in the background and appends each batch to every
// sink. A failing sink is logged and never affects the others or the caller.
type Writer struct {
	sinks         []Sink
	metrics       *metrics.Metrics
	bufferSize    int
	batchSize     int
	flushInterval time.Duration

	records chan Record
	mu      sync.RWMutex
	closed  bool
	done    sync.WaitGroup
}

// NewWriter starts the background flusher.
func NewWriter(sinks []Sink, opts ...WriterOption) *Writer {
	w := &Writer{
		sinks:         sinks,
		bufferSize:    defaultBufferSize,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.records = make(chan Record, w.bufferSize)
	w.done.Go(w.run)
	return w
}

// Sinks returns the names of the configured sinks.
func (w *Writer) Sinks() []string {
	names := make([]string, len(w.sinks))
	for i, s := range w.sinks {
		names[i] = s.Name()
	}
	return names
}

// Log enqueues a record without blocking. It reports false when the record
// was dropped because the buffer is full or the writer is closed.
func (w *Writer) Log(r Record) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.records <- r:
		return true
	default:
		if w.metrics != nil {
			w.metrics.RecordQueryLog("writer", "dropped", 1)
		}
		return false
	}
}

func (w *Writer) run() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, w.batchSize)
	for {
		select {
		case r, ok := <-w.records:
			if !ok {
				w.flush(batch)
				return
			}
			batch = append(batch, r)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (w *Writer) flush(batch []Record) {
	if len(batch) == 0 {
		return
	}
	for _, s := range w.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
		err := s.Append(ctx, batch)
		cancel()

		status := "written"
		if err != nil {
			status = "error"
			slog.Warn("query-log sink failed", "sink", s.Name(), "count", len(batch), "error", err)
		}
		if w.metrics != nil {
			w.metrics.RecordQueryLog(s.Name(), status, len(batch))
		}
	}
}

// Close stops accepting records, flushes what is queued and closes the sinks.
// When ctx ends first, Close returns its error and the sinks are closed once
// the pending flush completes, never while a sink call is in flight.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.records)
	w.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		w.done.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		w.closeSinks()
		return nil
	case <-ctx.Done():
		// The flusher may still be inside a sink call; close behind it.
		slog.Warn("query-log flush timed out; sinks close when it finishes")
		go func() {
			<-drained
			w.closeSinks()
		}()
		return ctx.Err()
	}
}

func (w *Writer) closeSinks() {
	for _, s := range w.sinks {
		if err := s.Close(); err != nil {
			slog.Warn("failed to close query-log sink", "sink", s.Name(), "error", err)
		}
	}
}
