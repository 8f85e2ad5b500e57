package store

import (
	"context"
	"testing"

	"github.com/runmat-org/otell/internal/model"
)

func TestSpanNotFound(t *testing.T) {
	s := newTestStore(t)
	resp, err := s.Span(context.Background(), model.SpanRequest{TraceID: traceID(1).Hex(), SpanID: spanID(1).Hex()})
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if resp.Found {
		t.Errorf("Found = true, want false")
	}
}

func TestSpanFoundWithEventsLinksAndRelatedLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trace := traceID(1)
	span := spanID(1)
	other := spanID(2)

	spans := []model.SpanRecord{
		{
			TraceID: trace, SpanID: span, Name: "do_work", Service: "api",
			StartTs: 100, EndTs: 200, Status: model.StatusOk,
			Events: []model.SpanEvent{{Ts: 150, Name: "checkpoint"}},
			Links:  []model.SpanLink{{TraceID: traceID(9), SpanID: other}},
		},
	}
	if err := s.InsertSpans(ctx, spans); err != nil {
		t.Fatalf("InsertSpans: %v", err)
	}

	logs := []model.LogRecord{
		{Ts: 120, TraceID: trace, SpanID: span, Body: "in span"},
		{Ts: 130, TraceID: trace, SpanID: other, Body: "different span"},
	}
	if err := s.InsertLogs(ctx, logs); err != nil {
		t.Fatalf("InsertLogs: %v", err)
	}

	resp, err := s.Span(ctx, model.SpanRequest{TraceID: trace.Hex(), SpanID: span.Hex(), Logs: model.LogsAll})
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if !resp.Found {
		t.Fatal("Found = false, want true")
	}
	if resp.Span.Name != "do_work" {
		t.Errorf("Name = %q, want do_work", resp.Span.Name)
	}
	if len(resp.Span.Events) != 1 || resp.Span.Events[0].Name != "checkpoint" {
		t.Errorf("Events = %+v", resp.Span.Events)
	}
	if len(resp.Span.Links) != 1 {
		t.Errorf("Links = %+v, want 1", resp.Span.Links)
	}
	if len(resp.Logs) != 1 || resp.Logs[0].Body != "in span" {
		t.Errorf("Logs = %+v, want only the span-scoped log", resp.Logs)
	}
}

func TestSpanLogsNonePolicySkipsLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trace := traceID(1)
	span := spanID(1)
	if err := s.InsertSpans(ctx, []model.SpanRecord{{TraceID: trace, SpanID: span, StartTs: 1, EndTs: 2}}); err != nil {
		t.Fatalf("InsertSpans: %v", err)
	}
	if err := s.InsertLogs(ctx, []model.LogRecord{{Ts: 1, TraceID: trace, SpanID: span, Body: "x"}}); err != nil {
		t.Fatalf("InsertLogs: %v", err)
	}

	resp, err := s.Span(ctx, model.SpanRequest{TraceID: trace.Hex(), SpanID: span.Hex(), Logs: model.LogsNone})
	if err != nil {
		t.Fatalf("Span: %v", err)
	}
	if resp.Logs != nil {
		t.Errorf("Logs = %v, want nil under LogsNone", resp.Logs)
	}
}
