package store

import (
	"context"
	"testing"

	"github.com/runmat-org/otell/internal/model"
)

func TestTraceNotFound(t *testing.T) {
	s := newTestStore(t)
	resp, err := s.Trace(context.Background(), model.TraceRequest{TraceID: traceID(1).Hex()})
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if resp.Found {
		t.Errorf("Found = true, want false for empty store")
	}
}

func TestTraceReturnsOrderedSpansAndBoundedLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trace := traceID(1)
	root := spanID(1)
	child := spanID(2)

	spans := []model.SpanRecord{
		{TraceID: trace, SpanID: child, ParentSpanID: root, Name: "child", StartTs: 200, EndTs: 250},
		{TraceID: trace, SpanID: root, Name: "root", StartTs: 100, EndTs: 300},
	}
	if err := s.InsertSpans(ctx, spans); err != nil {
		t.Fatalf("InsertSpans: %v", err)
	}

	var logs []model.LogRecord
	for i := 0; i < model.LogCtxLimit+5; i++ {
		logs = append(logs, model.LogRecord{Ts: int64(i), TraceID: trace, Body: "line"})
	}
	if err := s.InsertLogs(ctx, logs); err != nil {
		t.Fatalf("InsertLogs: %v", err)
	}

	resp, err := s.Trace(ctx, model.TraceRequest{TraceID: trace.Hex(), Logs: model.LogsBounded})
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if !resp.Found {
		t.Fatal("Found = false, want true")
	}
	if len(resp.Spans) != 2 {
		t.Fatalf("len(Spans) = %d, want 2", len(resp.Spans))
	}
	if resp.Spans[0].Name != "root" || resp.Spans[1].Name != "child" {
		t.Errorf("spans not ordered by start_ts: %+v", resp.Spans)
	}
	if !resp.Truncated {
		t.Errorf("Truncated = false, want true (inserted more than LogCtxLimit)")
	}
	if len(resp.Logs) != model.LogCtxLimit {
		t.Errorf("len(Logs) = %d, want %d", len(resp.Logs), model.LogCtxLimit)
	}
}

func TestTraceRootSelectsSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trace := traceID(1)
	root := spanID(1)
	branchA := spanID(2)
	branchB := spanID(3)
	leaf := spanID(4)

	spans := []model.SpanRecord{
		{TraceID: trace, SpanID: root, Name: "root", StartTs: 100, EndTs: 400},
		{TraceID: trace, SpanID: branchA, ParentSpanID: root, Name: "branch_a", StartTs: 110, EndTs: 200},
		{TraceID: trace, SpanID: branchB, ParentSpanID: root, Name: "branch_b", StartTs: 210, EndTs: 390},
		{TraceID: trace, SpanID: leaf, ParentSpanID: branchB, Name: "leaf", StartTs: 220, EndTs: 380},
	}
	if err := s.InsertSpans(ctx, spans); err != nil {
		t.Fatalf("InsertSpans: %v", err)
	}

	resp, err := s.Trace(ctx, model.TraceRequest{TraceID: trace.Hex(), Root: branchB.Hex()})
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}
	if len(resp.Spans) != 2 {
		t.Fatalf("len(Spans) = %d, want 2 (branch_b + leaf)", len(resp.Spans))
	}
	names := map[string]bool{}
	for _, sp := range resp.Spans {
		names[sp.Name] = true
	}
	if !names["branch_b"] || !names["leaf"] {
		t.Errorf("unexpected subtree: %+v", resp.Spans)
	}
	if names["root"] || names["branch_a"] {
		t.Errorf("subtree leaked sibling/ancestor spans: %+v", resp.Spans)
	}
}
