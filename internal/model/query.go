package model

// Sort selects the ordering of a query's result page.
type Sort int

const (
	TsAsc Sort = iota
	TsDesc
)

// AttrFilter is one "key=glob" filter, where glob supports * and ?.
type AttrFilter struct {
	Key  string `json:"key"`
	Glob string `json:"glob"`
}

// Filter is the envelope shared by every query operation.
type Filter struct {
	Since       *int64      `json:"since,omitempty"` // nanosecond bound, inclusive
	Until       *int64      `json:"until,omitempty"`  // nanosecond bound, exclusive
	Service     string      `json:"service,omitempty"`
	TraceID     string      `json:"trace_id,omitempty"`
	SpanID      string      `json:"span_id,omitempty"`
	SeverityGte *Severity   `json:"severity_gte,omitempty"`
	AttrFilters []AttrFilter `json:"attr_filters,omitempty"`
	Sort        Sort        `json:"sort"`
	Limit       int         `json:"limit"`
}

// LogsPolicy controls how much related-log context a trace/span query
// attaches.
type LogsPolicy int

const (
	LogsNone LogsPolicy = iota
	LogsBounded
	LogsAll
)

// LogCtxLimit bounds the number of related logs attached under the
// Bounded policy for a full trace; SpanRequest uses a tighter limit.
const LogCtxLimit = 50

// SpanLogCtxLimit bounds related logs attached to a single span lookup.
const SpanLogCtxLimit = 30

// SearchRequest describes one Search call.
type SearchRequest struct {
	Filter
	Pattern        string  `json:"pattern"`
	Fixed          bool    `json:"fixed,omitempty"`
	IgnoreCase     bool    `json:"ignore_case,omitempty"`
	CountOnly      bool    `json:"count_only,omitempty"`
	IncludeStats   bool    `json:"include_stats,omitempty"`
	ContextLines   int     `json:"context_lines,omitempty"`
	ContextSeconds float64 `json:"context_seconds,omitempty"`
}

// SearchHit is one matched or contextual log row.
type SearchHit struct {
	Record  LogRecord `json:"record"`
	IsMatch bool      `json:"is_match"` // false = context row
}

// SearchStats holds the by_service/by_severity breakdowns over the
// full match set (not the returned page).
type SearchStats struct {
	ByService  map[string]int64 `json:"by_service"`
	BySeverity map[string]int64 `json:"by_severity"`
}

// SearchResponse is the result of a Search call.
type SearchResponse struct {
	Handle        string       `json:"handle"`
	Total         int64        `json:"total_matches"`
	Records       []SearchHit  `json:"records,omitempty"`
	Stats         *SearchStats `json:"stats,omitempty"`
	ContextCapped bool         `json:"context_capped,omitempty"`
}

// TracesRequest describes one trace-summary listing call.
type TracesRequest struct {
	Filter
}

// TraceSummary aggregates one trace within a Traces listing.
type TraceSummary struct {
	TraceID      string     `json:"trace_id"`
	RootSpanName string     `json:"root_span_name"`
	DurationNs   int64      `json:"duration_ns"`
	SpanCount    int        `json:"span_count"`
	Status       SpanStatus `json:"status"`
	StartTs      int64      `json:"start_ts"`
}

// TracesResponse is the result of a Traces call.
type TracesResponse struct {
	Handle string         `json:"handle"`
	Traces []TraceSummary `json:"traces"`
}

// TraceRequest describes one full-trace fetch.
type TraceRequest struct {
	TraceID string     `json:"trace_id"`
	Logs    LogsPolicy `json:"logs,omitempty"`
	Root    string     `json:"root,omitempty"` // optional span_id override, selects a subtree
}

// TraceResponse is the result of a Trace call.
type TraceResponse struct {
	Handle    string       `json:"handle"`
	Found     bool         `json:"found"`
	Spans     []SpanRecord `json:"spans,omitempty"`
	Logs      []LogRecord  `json:"logs,omitempty"`
	Truncated bool         `json:"truncated,omitempty"`
}

// SpanRequest describes one single-span lookup.
type SpanRequest struct {
	TraceID string     `json:"trace_id"`
	SpanID  string     `json:"span_id"`
	Logs    LogsPolicy `json:"logs,omitempty"`
}

// SpanResponse is the result of a Span call.
type SpanResponse struct {
	Handle    string     `json:"handle"`
	Found     bool       `json:"found"`
	Span      SpanRecord `json:"span,omitzero"`
	Logs      []LogRecord `json:"logs,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
}

// MetricAgg selects the aggregation applied over a metric window.
type MetricAgg int

const (
	AggAvg MetricAgg = iota
	AggCount
	AggMin
	AggMax
	AggP50
	AggP95
	AggP99
)

func ParseMetricAgg(s string) (MetricAgg, bool) {
	switch s {
	case "avg":
		return AggAvg, true
	case "count":
		return AggCount, true
	case "min":
		return AggMin, true
	case "max":
		return AggMax, true
	case "p50":
		return AggP50, true
	case "p95":
		return AggP95, true
	case "p99":
		return AggP99, true
	default:
		return 0, false
	}
}

func (a MetricAgg) String() string {
	switch a {
	case AggCount:
		return "count"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggP50:
		return "p50"
	case AggP95:
		return "p95"
	case AggP99:
		return "p99"
	default:
		return "avg"
	}
}

// MetricsRequest describes one metric-aggregation call.
type MetricsRequest struct {
	Filter
	Name    string    `json:"name"`
	GroupBy string    `json:"group_by,omitempty"` // "" | "service" | an attribute key
	Agg     MetricAgg `json:"agg"`
}

// MetricGroup is one aggregated group within a Metrics response.
type MetricGroup struct {
	GroupKey string  `json:"group_key"`
	Value    float64 `json:"value"`
	Samples  int64   `json:"samples"`
}

// MetricsResponse is the result of a Metrics call.
type MetricsResponse struct {
	Handle string        `json:"handle"`
	Points int64         `json:"points"`
	Groups []MetricGroup `json:"groups"`
}

// MetricsListRequest describes one metric-name listing call.
type MetricsListRequest struct {
	Filter
}

// MetricNameCount is one row of a MetricsList response.
type MetricNameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// MetricsListResponse is the result of a MetricsList call.
type MetricsListResponse struct {
	Handle string            `json:"handle"`
	Names  []MetricNameCount `json:"names"`
}

// StatusResponse reports store health and sizing.
type StatusResponse struct {
	DBPath      string `json:"db_path"`
	SizeBytes   int64  `json:"size_bytes"`
	LogCount    int64  `json:"log_count"`
	SpanCount   int64  `json:"span_count"`
	MetricCount int64  `json:"metric_count"`
	OldestTs    *int64 `json:"oldest_ts,omitempty"`
	NewestTs    *int64 `json:"newest_ts,omitempty"`
}
