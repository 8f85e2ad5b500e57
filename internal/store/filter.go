package store

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/runmat-org/otell/internal/model"
)

// whereClause builds the SQL-pushdownable portion of a Filter: the
// time window, service, trace/span id, and severity floor. attr_filters
// are applied afterward in Go via matchesAttrFilters, since a glob
// match against one specific key's value isn't safely expressible as
// a LIKE over the flattened attrs_text without false positives across
// key boundaries.
func whereClause(f model.Filter, tsCol string) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.Since != nil {
		clauses = append(clauses, tsCol+" >= ?")
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		clauses = append(clauses, tsCol+" < ?")
		args = append(args, *f.Until)
	}
	if f.Service != "" {
		clauses = append(clauses, "service = ?")
		args = append(args, f.Service)
	}
	if f.TraceID != "" {
		clauses = append(clauses, "trace_id = ?")
		args = append(args, strings.ToLower(f.TraceID))
	}
	if f.SpanID != "" {
		clauses = append(clauses, "span_id = ?")
		args = append(args, strings.ToLower(f.SpanID))
	}
	if f.SeverityGte != nil {
		clauses = append(clauses, "severity >= ?")
		args = append(args, int32(*f.SeverityGte))
	}

	if len(clauses) == 0 {
		return "1=1", args
	}
	return strings.Join(clauses, " AND "), args
}

// matchesAttrFilters reports whether every "key=glob" filter matches
// the corresponding attribute's text form, grounded on doublestar's
// glob matcher (the only glob-matching library in the retrieval pack).
func matchesAttrFilters(attrs model.Attrs, filters []model.AttrFilter) bool {
	for _, f := range filters {
		v, ok := attrs[f.Key]
		if !ok {
			return false
		}
		matched, err := doublestar.Match(f.Glob, v.Text())
		if err != nil || !matched {
			return false
		}
	}
	return true
}
