package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/runmat-org/otell/internal/model"
)

type metricRow struct {
	service string
	value   float64
	attrs   model.Attrs
}

// Metrics implements the metric-aggregation query, grouping by
// service or one attribute key and aggregating with linear-
// interpolated percentiles over the sorted sample within the window.
func (s *Store) Metrics(ctx context.Context, req model.MetricsRequest) (model.MetricsResponse, error) {
	handle, err := model.Handle(req)
	if err != nil {
		return model.MetricsResponse{}, fmt.Errorf("building handle: %w", err)
	}

	where, args := whereClause(req.Filter, "ts")
	where += " AND name = ?"
	args = append(args, req.Name)

	query := fmt.Sprintf(`
		SELECT service, value, attrs_json FROM metric_points WHERE %s
	`, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.MetricsResponse{}, fmt.Errorf("querying metric points: %w", err)
	}
	defer rows.Close()

	var all []metricRow
	for rows.Next() {
		var service, attrJSON sql.NullString
		var value float64
		if err := rows.Scan(&service, &value, &attrJSON); err != nil {
			return model.MetricsResponse{}, fmt.Errorf("scanning metric point: %w", err)
		}
		attrs, err := model.ParseAttrsJSON(attrJSON.String)
		if err != nil {
			return model.MetricsResponse{}, fmt.Errorf("parsing attrs: %w", err)
		}
		if !matchesAttrFilters(attrs, req.AttrFilters) {
			continue
		}
		all = append(all, metricRow{service: service.String, value: value, attrs: attrs})
	}
	if err := rows.Err(); err != nil {
		return model.MetricsResponse{}, err
	}

	groups := map[string][]float64{}
	for _, r := range all {
		key := groupKey(r, req.GroupBy)
		groups[key] = append(groups[key], r.value)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]model.MetricGroup, 0, len(keys))
	for _, k := range keys {
		values := groups[k]
		if len(values) == 0 {
			continue
		}
		out = append(out, model.MetricGroup{
			GroupKey: k,
			Value:    aggregate(values, req.Agg),
			Samples:  int64(len(values)),
		})
	}

	return model.MetricsResponse{Handle: handle, Points: int64(len(all)), Groups: out}, nil
}

func groupKey(r metricRow, groupBy string) string {
	switch groupBy {
	case "":
		return ""
	case "service":
		if r.service == "" {
			return "unknown"
		}
		return r.service
	default:
		if v, ok := r.attrs[groupBy]; ok {
			return v.Text()
		}
		return ""
	}
}

func aggregate(values []float64, agg model.MetricAgg) float64 {
	switch agg {
	case model.AggCount:
		return float64(len(values))
	case model.AggMin:
		return minFloat(values)
	case model.AggMax:
		return maxFloat(values)
	case model.AggP50:
		return percentile(values, 0.50)
	case model.AggP95:
		return percentile(values, 0.95)
	case model.AggP99:
		return percentile(values, 0.99)
	default: // AggAvg
		return avgFloat(values)
	}
}

func avgFloat(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func minFloat(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxFloat(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// percentile computes the p-th percentile (p in [0,1]) over values
// using nearest-rank selection: idx = round((n-1)*p).
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(math.Round(p * float64(len(sorted)-1)))
	return sorted[idx]
}

// MetricsList implements the metric-name listing query.
func (s *Store) MetricsList(ctx context.Context, req model.MetricsListRequest) (model.MetricsListResponse, error) {
	handle, err := model.Handle(req)
	if err != nil {
		return model.MetricsListResponse{}, fmt.Errorf("building handle: %w", err)
	}

	where, args := whereClause(req.Filter, "ts")
	query := fmt.Sprintf(`
		SELECT name, COUNT(*) FROM metric_points
		WHERE %s
		GROUP BY name
		ORDER BY COUNT(*) DESC, name ASC
	`, where)
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.MetricsListResponse{}, fmt.Errorf("querying metric names: %w", err)
	}
	defer rows.Close()

	var names []model.MetricNameCount
	for rows.Next() {
		var nc model.MetricNameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return model.MetricsListResponse{}, fmt.Errorf("scanning metric name: %w", err)
		}
		names = append(names, nc)
	}
	if err := rows.Err(); err != nil {
		return model.MetricsListResponse{}, err
	}

	return model.MetricsListResponse{Handle: handle, Names: names}, nil
}
