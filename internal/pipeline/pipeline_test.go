package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/runmat-org/otell/internal/model"
)

type fakeWriter struct {
	mu      sync.Mutex
	logs    []model.LogRecord
	spans   []model.SpanRecord
	metrics []model.MetricPoint
}

func (w *fakeWriter) InsertLogs(_ context.Context, recs []model.LogRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logs = append(w.logs, recs...)
	return nil
}

func (w *fakeWriter) InsertSpans(_ context.Context, recs []model.SpanRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.spans = append(w.spans, recs...)
	return nil
}

func (w *fakeWriter) InsertMetricPoints(_ context.Context, pts []model.MetricPoint) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.metrics = append(w.metrics, pts...)
	return nil
}

func (w *fakeWriter) count() (int, int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.logs), len(w.spans), len(w.metrics)
}

func TestPipelineFlushesOnTimer(t *testing.T) {
	w := &fakeWriter{}
	cfg := Config{WriteBatchSize: 100, WriteFlushMs: 20, ChannelFactor: 4, EnqueueTimeout: time.Second}
	p := New(cfg, w, w, w)
	defer p.Close()

	recs := []model.LogRecord{{Ts: 1, Body: "a"}, {Ts: 2, Body: "b"}}
	if err := p.SubmitLogs(context.Background(), recs, time.Second); err != nil {
		t.Fatalf("SubmitLogs: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if n, _, _ := w.count(); n == 2 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("logs were not flushed within deadline")
}

func TestPipelineFlushesOnBatchSize(t *testing.T) {
	w := &fakeWriter{}
	cfg := Config{WriteBatchSize: 3, WriteFlushMs: 5000, ChannelFactor: 4, EnqueueTimeout: time.Second}
	p := New(cfg, w, w, w)
	defer p.Close()

	recs := []model.SpanRecord{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	if err := p.SubmitSpans(context.Background(), recs, time.Second); err != nil {
		t.Fatalf("SubmitSpans: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, n, _ := w.count(); n == 3 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("spans were not flushed on reaching batch size")
}

func TestPipelineBackpressure(t *testing.T) {
	w := &fakeWriter{}
	// capacity 1*1 = tiny, so a burst larger than capacity blocks until timeout.
	cfg := Config{WriteBatchSize: 1, WriteFlushMs: 5000, ChannelFactor: 1, EnqueueTimeout: time.Second}
	p := New(cfg, w, w, w)
	defer p.Close()

	big := make([]model.MetricPoint, 10000)
	err := p.SubmitMetrics(context.Background(), big, 10*time.Millisecond)
	if err != model.ErrCapacity {
		t.Fatalf("expected model.ErrCapacity, got %v", err)
	}
}

func TestPipelineCloseDrainsRemaining(t *testing.T) {
	w := &fakeWriter{}
	cfg := Config{WriteBatchSize: 100, WriteFlushMs: 5000, ChannelFactor: 4, EnqueueTimeout: time.Second}
	p := New(cfg, w, w, w)

	recs := []model.LogRecord{{Ts: 1}, {Ts: 2}, {Ts: 3}}
	if err := p.SubmitLogs(context.Background(), recs, time.Second); err != nil {
		t.Fatalf("SubmitLogs: %v", err)
	}
	p.Close()

	if n, _, _ := w.count(); n != 3 {
		t.Fatalf("expected 3 logs committed on close, got %d", n)
	}
}
