package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/runmat-org/otell/internal/model"
)

// Trace implements the Trace full-fetch query: every span for the
// trace ordered by (start_ts, span_id), plus related logs per policy.
func (s *Store) Trace(ctx context.Context, req model.TraceRequest) (model.TraceResponse, error) {
	handle, err := model.Handle(req)
	if err != nil {
		return model.TraceResponse{}, fmt.Errorf("building handle: %w", err)
	}

	spans, err := s.loadSpansForTrace(ctx, req.TraceID)
	if err != nil {
		return model.TraceResponse{}, err
	}
	if len(spans) == 0 {
		return model.TraceResponse{Handle: handle, Found: false}, nil
	}

	if req.Root != "" {
		spans = subtreeRootedAt(spans, req.Root)
	}

	logs, truncated, err := s.relatedLogs(ctx, req.TraceID, "", req.Logs)
	if err != nil {
		return model.TraceResponse{}, err
	}

	return model.TraceResponse{
		Handle:    handle,
		Found:     true,
		Spans:     spans,
		Logs:      logs,
		Truncated: truncated,
	}, nil
}

// subtreeRootedAt keeps root and every descendant reachable from it
// via parent_span_id, preserving the caller's start_ts/span_id order.
func subtreeRootedAt(spans []model.SpanRecord, rootHex string) []model.SpanRecord {
	children := map[string][]string{}
	byID := map[string]model.SpanRecord{}
	for _, sp := range spans {
		id := sp.SpanID.Hex()
		byID[id] = sp
		parent := sp.ParentSpanID.Hex()
		children[parent] = append(children[parent], id)
	}

	keep := map[string]bool{}
	var walk func(id string)
	walk = func(id string) {
		if keep[id] {
			return
		}
		keep[id] = true
		for _, c := range children[id] {
			walk(c)
		}
	}
	if _, ok := byID[rootHex]; !ok {
		return nil
	}
	walk(rootHex)

	out := make([]model.SpanRecord, 0, len(keep))
	for _, sp := range spans {
		if keep[sp.SpanID.Hex()] {
			out = append(out, sp)
		}
	}
	return out
}

func (s *Store) loadSpansForTrace(ctx context.Context, traceID string) ([]model.SpanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trace_id, span_id, parent_span_id, service, name, kind, start_ts, end_ts, status, status_message, attrs_json
		FROM spans
		WHERE trace_id = ?
		ORDER BY start_ts, span_id
	`, traceID)
	if err != nil {
		return nil, fmt.Errorf("querying spans: %w", err)
	}
	defer rows.Close()

	var out []model.SpanRecord
	for rows.Next() {
		var (
			tid, sid                    string
			parentID, service, attrJSON sql.NullString
			name, statusMsg             string
			kind, status                int32
			start, end                  int64
		)
		if err := rows.Scan(&tid, &sid, &parentID, &service, &name, &kind, &start, &end, &status, &statusMsg, &attrJSON); err != nil {
			return nil, fmt.Errorf("scanning span: %w", err)
		}
		attrs, err := model.ParseAttrsJSON(attrJSON.String)
		if err != nil {
			return nil, fmt.Errorf("parsing attrs: %w", err)
		}
		events, err := s.loadSpanEvents(ctx, tid, sid)
		if err != nil {
			return nil, err
		}
		links, err := s.loadSpanLinks(ctx, tid, sid)
		if err != nil {
			return nil, err
		}
		out = append(out, model.SpanRecord{
			TraceID:       hexTraceID(tid),
			SpanID:        hexSpanID(sid),
			ParentSpanID:  hexSpanID(parentID.String),
			Service:       service.String,
			Name:          name,
			Kind:          model.SpanKind(kind),
			StartTs:       start,
			EndTs:         end,
			Status:        model.SpanStatus(status),
			StatusMessage: statusMsg,
			Attrs:         attrs,
			Events:        events,
			Links:         links,
		})
	}
	return out, rows.Err()
}

func (s *Store) loadSpanEvents(ctx context.Context, traceID, spanID string) ([]model.SpanEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, name, attrs_json FROM span_events
		WHERE trace_id = ? AND span_id = ? ORDER BY ord
	`, traceID, spanID)
	if err != nil {
		return nil, fmt.Errorf("querying span events: %w", err)
	}
	defer rows.Close()

	var out []model.SpanEvent
	for rows.Next() {
		var ts int64
		var name string
		var attrJSON sql.NullString
		if err := rows.Scan(&ts, &name, &attrJSON); err != nil {
			return nil, fmt.Errorf("scanning span event: %w", err)
		}
		attrs, err := model.ParseAttrsJSON(attrJSON.String)
		if err != nil {
			return nil, fmt.Errorf("parsing event attrs: %w", err)
		}
		out = append(out, model.SpanEvent{Ts: ts, Name: name, Attrs: attrs})
	}
	return out, rows.Err()
}

func (s *Store) loadSpanLinks(ctx context.Context, traceID, spanID string) ([]model.SpanLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT link_trace_id, link_span_id, attrs_json FROM span_links
		WHERE trace_id = ? AND span_id = ? ORDER BY ord
	`, traceID, spanID)
	if err != nil {
		return nil, fmt.Errorf("querying span links: %w", err)
	}
	defer rows.Close()

	var out []model.SpanLink
	for rows.Next() {
		var linkTrace, linkSpan sql.NullString
		var attrJSON sql.NullString
		if err := rows.Scan(&linkTrace, &linkSpan, &attrJSON); err != nil {
			return nil, fmt.Errorf("scanning span link: %w", err)
		}
		attrs, err := model.ParseAttrsJSON(attrJSON.String)
		if err != nil {
			return nil, fmt.Errorf("parsing link attrs: %w", err)
		}
		out = append(out, model.SpanLink{
			TraceID: hexTraceID(linkTrace.String),
			SpanID:  hexSpanID(linkSpan.String),
			Attrs:   attrs,
		})
	}
	return out, rows.Err()
}

// relatedLogs fetches logs matching trace_id (and span_id when given)
// per the logs policy, returning a truncated flag for Bounded mode.
func (s *Store) relatedLogs(ctx context.Context, traceID, spanID string, policy model.LogsPolicy) ([]model.LogRecord, bool, error) {
	if policy == model.LogsNone {
		return nil, false, nil
	}

	limit := model.LogCtxLimit
	if spanID != "" {
		limit = model.SpanLogCtxLimit
	}

	query := `
		SELECT ts, service, severity, trace_id, span_id, body, attrs_json
		FROM logs WHERE trace_id = ?`
	args := []interface{}{traceID}
	if spanID != "" {
		query += " AND span_id = ?"
		args = append(args, spanID)
	}
	query += " ORDER BY ts, trace_id, span_id"

	if policy == model.LogsBounded {
		query += fmt.Sprintf(" LIMIT %d", limit+1)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying related logs: %w", err)
	}
	defer rows.Close()

	var out []model.LogRecord
	for rows.Next() {
		var (
			ts                                  int64
			service, tid, sid, body, attrJSON sql.NullString
			severity                            int32
		)
		if err := rows.Scan(&ts, &service, &severity, &tid, &sid, &body, &attrJSON); err != nil {
			return nil, false, fmt.Errorf("scanning log: %w", err)
		}
		attrs, err := model.ParseAttrsJSON(attrJSON.String)
		if err != nil {
			return nil, false, fmt.Errorf("parsing attrs: %w", err)
		}
		out = append(out, model.LogRecord{
			Ts:       ts,
			Service:  service.String,
			Severity: model.Severity(severity),
			TraceID:  hexTraceID(tid.String),
			SpanID:   hexSpanID(sid.String),
			Body:     body.String,
			Attrs:    attrs,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if policy == model.LogsBounded && len(out) > limit {
		return out[:limit], true, nil
	}
	return out, false, nil
}
