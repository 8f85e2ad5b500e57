package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/runmat-org/otell/internal/model"
)

// Span implements the single-span lookup plus related logs.
func (s *Store) Span(ctx context.Context, req model.SpanRequest) (model.SpanResponse, error) {
	handle, err := model.Handle(req)
	if err != nil {
		return model.SpanResponse{}, fmt.Errorf("building handle: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT trace_id, span_id, parent_span_id, service, name, kind, start_ts, end_ts, status, status_message, attrs_json
		FROM spans WHERE trace_id = ? AND span_id = ?
	`, req.TraceID, req.SpanID)

	var (
		tid, sid                    string
		parentID, service, attrJSON sql.NullString
		name, statusMsg              string
		kind, status                 int32
		start, end                   int64
	)
	err = row.Scan(&tid, &sid, &parentID, &service, &name, &kind, &start, &end, &status, &statusMsg, &attrJSON)
	if err == sql.ErrNoRows {
		return model.SpanResponse{Handle: handle, Found: false}, nil
	}
	if err != nil {
		return model.SpanResponse{}, fmt.Errorf("querying span: %w", err)
	}

	attrs, err := model.ParseAttrsJSON(attrJSON.String)
	if err != nil {
		return model.SpanResponse{}, fmt.Errorf("parsing attrs: %w", err)
	}
	events, err := s.loadSpanEvents(ctx, tid, sid)
	if err != nil {
		return model.SpanResponse{}, err
	}
	links, err := s.loadSpanLinks(ctx, tid, sid)
	if err != nil {
		return model.SpanResponse{}, err
	}

	span := model.SpanRecord{
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
	}

	logs, truncated, err := s.relatedLogs(ctx, req.TraceID, req.SpanID, req.Logs)
	if err != nil {
		return model.SpanResponse{}, err
	}

	return model.SpanResponse{
		Handle:    handle,
		Found:     true,
		Span:      span,
		Logs:      logs,
		Truncated: truncated,
	}, nil
}
