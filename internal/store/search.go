package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/runmat-org/otell/internal/model"
)

// maxCandidateRows bounds how many rows Search loads into memory
// before applying the pattern, a defensive cap this embedded,
// single-node store needs that the spec leaves unstated.
const maxCandidateRows = 500_000

// defaultContextCapMultiple is the "global safety limit" spec.md §4.3
// describes as "default 10×limit" for context expansion.
const defaultContextCapMultiple = 10

type candidateRow struct {
	rec     model.LogRecord
	attrs   model.Attrs
	attrTxt string
}

// Search implements the Search query operation.
func (s *Store) Search(ctx context.Context, req model.SearchRequest) (model.SearchResponse, error) {
	handle, err := model.Handle(req)
	if err != nil {
		return model.SearchResponse{}, fmt.Errorf("building handle: %w", err)
	}

	matcher, err := buildMatcher(req.Pattern, req.Fixed, req.IgnoreCase)
	if err != nil {
		return model.SearchResponse{}, model.BadRequest(fmt.Sprintf("invalid pattern: %v", err))
	}

	universe, err := s.loadLogCandidates(ctx, req.Filter)
	if err != nil {
		return model.SearchResponse{}, err
	}

	matchIdx := make([]int, 0)
	for i, row := range universe {
		if matcher(row.rec.Body) || matcher(row.attrTxt) {
			matchIdx = append(matchIdx, i)
		}
	}

	resp := model.SearchResponse{Handle: handle, Total: int64(len(matchIdx))}

	if req.CountOnly {
		return resp, nil
	}

	if req.IncludeStats {
		resp.Stats = computeLogStats(universe, matchIdx)
	}

	contextCap := req.Limit * defaultContextCapMultiple
	if contextCap <= 0 {
		contextCap = len(universe)
	}

	// Bound the match set by limit before context expansion: the
	// original takes the first limit matches (respecting sort order)
	// and only then expands context around them, so limit governs how
	// many matches are returned, not the combined match+context total.
	limitedMatches := matchIdx
	if req.Limit > 0 && len(matchIdx) > req.Limit {
		if req.Sort == model.TsDesc {
			limitedMatches = matchIdx[len(matchIdx)-req.Limit:]
		} else {
			limitedMatches = matchIdx[:req.Limit]
		}
	}

	included := make(map[int]bool, len(limitedMatches))
	order := make([]int, 0, len(limitedMatches))

	addIdx := func(i int) bool {
		if included[i] {
			return true
		}
		if len(order) >= contextCap {
			resp.ContextCapped = true
			return false
		}
		included[i] = true
		order = append(order, i)
		return true
	}

	for _, mi := range limitedMatches {
		if !addIdx(mi) {
			break
		}
		switch {
		case req.ContextSeconds > 0:
			windowNs := int64(req.ContextSeconds * 1e9)
			matchTs := universe[mi].rec.Ts
			for j := range universe {
				if j == mi {
					continue
				}
				if abs64(universe[j].rec.Ts-matchTs) <= windowNs {
					if !addIdx(j) {
						break
					}
				}
			}
		case req.ContextLines > 0:
			for d := 1; d <= req.ContextLines; d++ {
				if mi-d >= 0 {
					if !addIdx(mi - d) {
						break
					}
				}
				if mi+d < len(universe) {
					if !addIdx(mi + d) {
						break
					}
				}
			}
		}
	}

	// order currently reflects visitation order (match, then its
	// context neighbors); re-sort to the universe's deterministic
	// (ts, trace_id, span_id) order before assembling hits.
	sortInts(order)

	isMatch := make(map[int]bool, len(limitedMatches))
	for _, mi := range limitedMatches {
		isMatch[mi] = true
	}

	hits := make([]model.SearchHit, 0, len(order))
	for _, i := range order {
		hits = append(hits, model.SearchHit{Record: universe[i].rec, IsMatch: isMatch[i]})
	}

	if req.Sort == model.TsDesc {
		for l, r := 0, len(hits)-1; l < r; l, r = l+1, r-1 {
			hits[l], hits[r] = hits[r], hits[l]
		}
	}

	resp.Records = hits

	return resp, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

func computeLogStats(universe []candidateRow, matchIdx []int) *model.SearchStats {
	stats := &model.SearchStats{
		ByService:  map[string]int64{},
		BySeverity: map[string]int64{},
	}
	for _, i := range matchIdx {
		r := universe[i].rec
		svc := r.Service
		if svc == "" {
			svc = "unknown"
		}
		stats.ByService[svc]++
		stats.BySeverity[r.Severity.Text()]++
	}
	return stats
}

// buildMatcher compiles a regex or prepares a fixed-substring test.
func buildMatcher(pattern string, fixed, ignoreCase bool) (func(string) bool, error) {
	if fixed {
		needle := pattern
		if ignoreCase {
			needle = strings.ToLower(needle)
		}
		return func(s string) bool {
			if ignoreCase {
				s = strings.ToLower(s)
			}
			return strings.Contains(s, needle)
		}, nil
	}

	expr := pattern
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

// loadLogCandidates loads the filter envelope's full matching set
// (filter + attr_filters, not pattern), ordered deterministically by
// (ts, trace_id, span_id, seq).
func (s *Store) loadLogCandidates(ctx context.Context, f model.Filter) ([]candidateRow, error) {
	where, args := whereClause(f, "ts")
	query := fmt.Sprintf(`
		SELECT ts, service, severity, trace_id, span_id, body, attrs_json, attrs_text
		FROM logs
		WHERE %s
		ORDER BY ts, trace_id, span_id, seq
		LIMIT %d
	`, where, maxCandidateRows)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying logs: %w", err)
	}
	defer rows.Close()

	var out []candidateRow
	for rows.Next() {
		var (
			ts                                             int64
			service, traceID, spanID, body, attrsJSON, at sql.NullString
			severity                                       int32
		)
		if err := rows.Scan(&ts, &service, &severity, &traceID, &spanID, &body, &attrsJSON, &at); err != nil {
			return nil, fmt.Errorf("scanning log row: %w", err)
		}

		attrs, err := model.ParseAttrsJSON(attrsJSON.String)
		if err != nil {
			return nil, fmt.Errorf("parsing attrs: %w", err)
		}
		if !matchesAttrFilters(attrs, f.AttrFilters) {
			continue
		}

		out = append(out, candidateRow{
			rec: model.LogRecord{
				Ts:       ts,
				Service:  service.String,
				Severity: model.Severity(severity),
				TraceID:  hexTraceID(traceID.String),
				SpanID:   hexSpanID(spanID.String),
				Body:     body.String,
				Attrs:    attrs,
			},
			attrs:   attrs,
			attrTxt: at.String,
		})
	}
	return out, rows.Err()
}
