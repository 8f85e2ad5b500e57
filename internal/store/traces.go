package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/runmat-org/otell/internal/model"
)

// Traces implements the Traces aggregation query.
func (s *Store) Traces(ctx context.Context, req model.TracesRequest) (model.TracesResponse, error) {
	handle, err := model.Handle(req)
	if err != nil {
		return model.TracesResponse{}, fmt.Errorf("building handle: %w", err)
	}

	where, args := whereClause(req.Filter, "start_ts")
	query := fmt.Sprintf(`
		SELECT trace_id, span_id, parent_span_id, name, status, start_ts, end_ts, attrs_json
		FROM spans
		WHERE %s
		ORDER BY trace_id, start_ts, span_id
	`, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.TracesResponse{}, fmt.Errorf("querying spans: %w", err)
	}
	defer rows.Close()

	type spanRow struct {
		spanID, parentID, name string
		status                 int32
		start, end             int64
		attrsJSON               string
	}
	byTrace := map[string][]spanRow{}
	order := make([]string, 0)

	for rows.Next() {
		var traceID string
		var sr spanRow
		var parentID, attrsJSON sql.NullString
		if err := rows.Scan(&traceID, &sr.spanID, &parentID, &sr.name, &sr.status, &sr.start, &sr.end, &attrsJSON); err != nil {
			return model.TracesResponse{}, fmt.Errorf("scanning span row: %w", err)
		}
		sr.parentID = parentID.String
		sr.attrsJSON = attrsJSON.String

		if len(req.AttrFilters) > 0 {
			attrs, err := model.ParseAttrsJSON(sr.attrsJSON)
			if err != nil {
				return model.TracesResponse{}, fmt.Errorf("parsing attrs: %w", err)
			}
			if !matchesAttrFilters(attrs, req.AttrFilters) {
				continue
			}
		}

		if _, ok := byTrace[traceID]; !ok {
			order = append(order, traceID)
		}
		byTrace[traceID] = append(byTrace[traceID], sr)
	}
	if err := rows.Err(); err != nil {
		return model.TracesResponse{}, err
	}

	summaries := make([]model.TraceSummary, 0, len(order))
	for _, traceID := range order {
		spans := byTrace[traceID]

		var root spanRow
		haveRoot := false
		minStart, maxEnd := spans[0].start, spans[0].end
		status := model.StatusOk
		hasError := false

		for _, sp := range spans {
			if sp.start < minStart {
				minStart = sp.start
			}
			if sp.end > maxEnd {
				maxEnd = sp.end
			}
			if model.SpanStatus(sp.status) == model.StatusError {
				hasError = true
			}
			if sp.parentID == "" {
				if !haveRoot || sp.start < root.start {
					root = sp
					haveRoot = true
				}
			}
		}
		if hasError {
			status = model.StatusError
		}
		rootName := root.name
		if !haveRoot {
			// no span without a parent: fall back to the earliest span
			// as a best-effort root, per spec.md's silence on this case.
			earliest := spans[0]
			for _, sp := range spans {
				if sp.start < earliest.start {
					earliest = sp
				}
			}
			rootName = earliest.name
		}

		summaries = append(summaries, model.TraceSummary{
			TraceID:      traceID,
			RootSpanName: rootName,
			DurationNs:   maxEnd - minStart,
			SpanCount:    len(spans),
			Status:       status,
			StartTs:      minStart,
		})
	}

	sortTraceSummaries(summaries)
	if req.Sort == model.TsDesc {
		for l, r := 0, len(summaries)-1; l < r; l, r = l+1, r-1 {
			summaries[l], summaries[r] = summaries[r], summaries[l]
		}
	}

	if req.Limit > 0 && len(summaries) > req.Limit {
		summaries = summaries[:req.Limit]
	}

	return model.TracesResponse{Handle: handle, Traces: summaries}, nil
}

func sortTraceSummaries(s []model.TraceSummary) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].StartTs > s[j].StartTs; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
