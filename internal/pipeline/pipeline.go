// Package pipeline buffers decoded records behind one bounded channel
// per signal and drains them into the store in batches, generalizing
// the teacher's single-writer batchWriter into one instance per
// signal (logs, spans, metrics).
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/pkg/logger"
)

// ErrClosed is returned by Submit* once the pipeline has begun shutting down.
var ErrClosed = errors.New("pipeline is closed")

// Config controls batching and back-pressure, named directly after
// spec.md §4.2's parameters.
type Config struct {
	WriteBatchSize int
	WriteFlushMs   int
	ChannelFactor  int // channel capacity = ChannelFactor * WriteBatchSize
	EnqueueTimeout time.Duration

	// OnLogsCommitted, if set, is invoked with every log batch right
	// after it commits successfully — the post-commit publish point
	// the tail broadcaster subscribes to per spec.md §4.5.
	OnLogsCommitted func([]model.LogRecord)
}

// DefaultConfig matches spec.md §4.2's defaults.
func DefaultConfig() Config {
	return Config{
		WriteBatchSize: 2048,
		WriteFlushMs:   200,
		ChannelFactor:  4,
		EnqueueTimeout: 2 * time.Second,
	}
}

// LogWriter persists one flushed batch of logs.
type LogWriter interface {
	InsertLogs(ctx context.Context, recs []model.LogRecord) error
}

// SpanWriter persists one flushed batch of spans.
type SpanWriter interface {
	InsertSpans(ctx context.Context, recs []model.SpanRecord) error
}

// MetricWriter persists one flushed batch of metric points.
type MetricWriter interface {
	InsertMetricPoints(ctx context.Context, pts []model.MetricPoint) error
}

// Stats reports per-signal drop counters.
type Stats struct {
	LogsDropped    int64
	SpansDropped   int64
	MetricsDropped int64
}

// Pipeline fans decoded records out to three independently-flushed
// bounded queues.
type Pipeline struct {
	logs    *signalQueue[model.LogRecord]
	spans   *signalQueue[model.SpanRecord]
	metrics *signalQueue[model.MetricPoint]
}

// New starts the three signal writer goroutines.
func New(cfg Config, logW LogWriter, spanW SpanWriter, metricW MetricWriter) *Pipeline {
	capacity := cfg.ChannelFactor * cfg.WriteBatchSize
	flush := time.Duration(cfg.WriteFlushMs) * time.Millisecond

	p := &Pipeline{
		logs: newSignalQueue(capacity, cfg.WriteBatchSize, flush, "logs",
			func(ctx context.Context, batch []model.LogRecord) error {
				if err := logW.InsertLogs(ctx, batch); err != nil {
					return err
				}
				if cfg.OnLogsCommitted != nil {
					cfg.OnLogsCommitted(batch)
				}
				return nil
			}),
		spans: newSignalQueue(capacity, cfg.WriteBatchSize, flush, "spans",
			func(ctx context.Context, batch []model.SpanRecord) error {
				return spanW.InsertSpans(ctx, batch)
			}),
		metrics: newSignalQueue(capacity, cfg.WriteBatchSize, flush, "metrics",
			func(ctx context.Context, batch []model.MetricPoint) error {
				return metricW.InsertMetricPoints(ctx, batch)
			}),
	}
	return p
}

// SubmitLogs enqueues decoded logs; timeout bounds the enqueue of the
// whole slice, and running out of it surfaces model.ErrCapacity.
func (p *Pipeline) SubmitLogs(ctx context.Context, recs []model.LogRecord, timeout time.Duration) error {
	return p.logs.submit(ctx, recs, timeout)
}

func (p *Pipeline) SubmitSpans(ctx context.Context, recs []model.SpanRecord, timeout time.Duration) error {
	return p.spans.submit(ctx, recs, timeout)
}

func (p *Pipeline) SubmitMetrics(ctx context.Context, pts []model.MetricPoint, timeout time.Duration) error {
	return p.metrics.submit(ctx, pts, timeout)
}

// Stats reports current drop counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		LogsDropped:    atomic.LoadInt64(&p.logs.dropped),
		SpansDropped:   atomic.LoadInt64(&p.spans.dropped),
		MetricsDropped: atomic.LoadInt64(&p.metrics.dropped),
	}
}

// Close stops accepting new records and waits, for all three queues
// concurrently, until each has committed the records it still held.
// The wait has no time limit: a queue holding several full batches
// commits each of them before Close returns.
func (p *Pipeline) Close() {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); p.logs.close() }()
	go func() { defer wg.Done(); p.spans.close() }()
	go func() { defer wg.Done(); p.metrics.close() }()
	wg.Wait()
}

// signalQueue is one bounded channel + batching writer goroutine for
// a single signal type, generalizing the teacher's batchWriter/writeOp
// pair with generics instead of an interface{} payload + op-type switch.
type signalQueue[T any] struct {
	ch        chan T
	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	dropped   int64

	batchSize int
	flush     func(ctx context.Context, batch []T) error
}

func newSignalQueue[T any](capacity, batchSize int, flushInterval time.Duration, name string, flush func(ctx context.Context, batch []T) error) *signalQueue[T] {
	q := &signalQueue[T]{
		ch:        make(chan T, capacity),
		closeCh:   make(chan struct{}),
		batchSize: batchSize,
		flush:     flush,
	}
	q.wg.Add(1)
	go q.run(flushInterval, name)
	return q
}

func (q *signalQueue[T]) submit(ctx context.Context, items []T, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for _, item := range items {
		select {
		case q.ch <- item:
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return model.ErrCapacity
		case <-q.closeCh:
			return ErrClosed
		}
	}
	return nil
}

func (q *signalQueue[T]) run(flushInterval time.Duration, name string) {
	defer q.wg.Done()
	log := logger.Component("pipeline." + name)

	batch := make([]T, 0, q.batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	commit := func() {
		if len(batch) == 0 {
			return
		}
		if err := q.flushWithRetry(batch); err != nil {
			atomic.AddInt64(&q.dropped, int64(len(batch)))
			log.Error().Err(err).Int("batch_size", len(batch)).Msg("dropping batch after retry failed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case item := <-q.ch:
			batch = append(batch, item)
			if len(batch) >= q.batchSize {
				commit()
			}
		case <-ticker.C:
			commit()
		case <-q.closeCh:
			for {
				select {
				case item := <-q.ch:
					batch = append(batch, item)
					if len(batch) >= q.batchSize {
						commit()
					}
				default:
					commit()
					return
				}
			}
		}
	}
}

// flushWithRetry commits once, retries once on failure, then gives up
// per spec.md §4.2's "retried once, then dropped" policy.
func (q *signalQueue[T]) flushWithRetry(batch []T) error {
	err := q.flush(context.Background(), batch)
	if err == nil {
		return nil
	}
	return q.flush(context.Background(), batch)
}

func (q *signalQueue[T]) close() {
	q.closeOnce.Do(func() {
		close(q.closeCh)
		q.wg.Wait()
	})
}
