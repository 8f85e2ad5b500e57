package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/runmat-org/otell/internal/model"
)

// InsertLogs implements pipeline.LogWriter: one multi-row INSERT
// inside one transaction, matching the teacher's one-transaction-per-
// flush discipline.
func (s *Store) InsertLogs(ctx context.Context, recs []model.LogRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const cols = 8
	var sb strings.Builder
	sb.WriteString("INSERT INTO logs (ts, service, severity, trace_id, span_id, body, attrs_json, attrs_text) VALUES ")
	args := make([]interface{}, 0, len(recs)*cols)
	for i, r := range recs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?)")
		args = append(args, r.Ts, nullableString(r.Service), int32(r.Severity),
			nullableString(r.TraceID.Hex()), nullableString(r.SpanID.Hex()), r.Body,
			r.Attrs.JSON(), r.Attrs.Text())
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting logs: %w", err)
	}
	return tx.Commit()
}

// InsertSpans implements pipeline.SpanWriter: inserts spans plus their
// child events/links rows within one transaction.
func (s *Store) InsertSpans(ctx context.Context, recs []model.SpanRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sb strings.Builder
	sb.WriteString("INSERT INTO spans (trace_id, span_id, parent_span_id, service, name, kind, start_ts, end_ts, status, status_message, attrs_json, attrs_text) VALUES ")
	args := make([]interface{}, 0, len(recs)*12)
	for i, r := range recs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args, r.TraceID.Hex(), r.SpanID.Hex(), nullableString(r.ParentSpanID.Hex()),
			nullableString(r.Service), r.Name, int32(r.Kind), r.StartTs, r.EndTs,
			int32(r.Status), r.StatusMessage, r.Attrs.JSON(), r.Attrs.Text())
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting spans: %w", err)
	}

	for _, r := range recs {
		for i, ev := range r.Events {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO span_events (trace_id, span_id, ord, ts, name, attrs_json) VALUES (?,?,?,?,?,?)",
				r.TraceID.Hex(), r.SpanID.Hex(), i, ev.Ts, ev.Name, ev.Attrs.JSON())
			if err != nil {
				return fmt.Errorf("inserting span event: %w", err)
			}
		}
		for i, lk := range r.Links {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO span_links (trace_id, span_id, ord, link_trace_id, link_span_id, attrs_json) VALUES (?,?,?,?,?,?)",
				r.TraceID.Hex(), r.SpanID.Hex(), i, lk.TraceID.Hex(), lk.SpanID.Hex(), lk.Attrs.JSON())
			if err != nil {
				return fmt.Errorf("inserting span link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// InsertMetricPoints implements pipeline.MetricWriter.
func (s *Store) InsertMetricPoints(ctx context.Context, pts []model.MetricPoint) error {
	if len(pts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var sb strings.Builder
	sb.WriteString("INSERT INTO metric_points (name, service, ts, value, kind, stat, attrs_json, attrs_text) VALUES ")
	args := make([]interface{}, 0, len(pts)*8)
	for i, p := range pts {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?,?,?,?,?,?,?,?)")
		args = append(args, p.Name, nullableString(p.Service), p.Ts, p.Value,
			int32(p.Kind), nullableString(p.Stat), p.Attrs.JSON(), p.Attrs.Text())
	}
	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("inserting metric points: %w", err)
	}
	return tx.Commit()
}

// nullableString maps "" to a NULL column value; DuckDB stores
// "service IS NULL" for the un-attributed case, per spec.md §3.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
