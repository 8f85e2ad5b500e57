package otlp

import (
	"testing"

	"github.com/runmat-org/otell/internal/model"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

func strAttr(k, v string) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: k, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v}}}
}

func TestDecodeLogsFoldsResourceAndScope(t *testing.T) {
	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{
				Resource: &resourcepb.Resource{Attributes: []*commonpb.KeyValue{strAttr("service.name", "checkout")}},
				ScopeLogs: []*logspb.ScopeLogs{
					{
						Scope: &commonpb.InstrumentationScope{Name: "mylib", Attributes: []*commonpb.KeyValue{strAttr("build", "1")}},
						LogRecords: []*logspb.LogRecord{
							{
								TimeUnixNano: 1000,
								SeverityText: "INFO",
								Body:         &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "hello"}},
								Attributes:   []*commonpb.KeyValue{strAttr("k", "v")},
							},
						},
					},
				},
			},
		},
	}

	recs, errs := DecodeLogs(req)
	if len(errs) != 0 {
		t.Fatalf("unexpected errs: %v", errs)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.Service != "checkout" {
		t.Errorf("Service = %q, want checkout", r.Service)
	}
	if r.Body != "hello" {
		t.Errorf("Body = %q, want hello", r.Body)
	}
	if r.Attrs["k"].Text() != "v" {
		t.Errorf("attrs[k] = %q, want v", r.Attrs["k"].Text())
	}
	if r.Attrs["scope.build"].Text() != "1" {
		t.Errorf("attrs[scope.build] = %q, want 1", r.Attrs["scope.build"].Text())
	}
}

func TestDecodeLogsRejectsZeroTimestamp(t *testing.T) {
	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{ScopeLogs: []*logspb.ScopeLogs{{LogRecords: []*logspb.LogRecord{{TimeUnixNano: 0}}}}},
		},
	}
	recs, errs := DecodeLogs(req)
	if len(recs) != 0 {
		t.Fatalf("expected 0 accepted, got %d", len(recs))
	}
	if len(errs) != 1 || errs[0].Kind != model.InvalidTimestamp {
		t.Fatalf("expected one InvalidTimestamp error, got %v", errs)
	}
}

func TestDecodeTracesParentAndStatus(t *testing.T) {
	req := &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{Attributes: []*commonpb.KeyValue{strAttr("service.name", "api")}},
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Spans: []*tracepb.Span{
							{
								TraceId:           make([]byte, 16),
								SpanId:            []byte{1, 2, 3, 4, 5, 6, 7, 8},
								ParentSpanId:      nil,
								Name:              "GET /",
								Kind:              tracepb.Span_SPAN_KIND_SERVER,
								StartTimeUnixNano: 100,
								EndTimeUnixNano:   200,
								Status:            &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK},
							},
						},
					},
				},
			},
		},
	}
	// give trace id a non-zero byte so IsZero() validation passes
	req.ResourceSpans[0].ScopeSpans[0].Spans[0].TraceId[15] = 9

	spans, errs := DecodeTraces(req)
	if len(errs) != 0 {
		t.Fatalf("unexpected errs: %v", errs)
	}
	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	s := spans[0]
	if s.Kind.String() != "Server" {
		t.Errorf("Kind = %s, want Server", s.Kind)
	}
	if s.Status.String() != "Ok" {
		t.Errorf("Status = %s, want Ok", s.Status)
	}
	if s.ParentSpanID != nil {
		t.Errorf("ParentSpanID should be nil for root span, got %v", s.ParentSpanID)
	}
	if s.Service != "api" {
		t.Errorf("Service = %q, want api", s.Service)
	}
}

func TestDecodeMetricsHistogramExpansion(t *testing.T) {
	req := &colmetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{
			{
				ScopeMetrics: []*metricspb.ScopeMetrics{
					{
						Metrics: []*metricspb.Metric{
							{
								Name: "latency_ms",
								Data: &metricspb.Metric_Histogram{
									Histogram: &metricspb.Histogram{
										DataPoints: []*metricspb.HistogramDataPoint{
											{
												TimeUnixNano:   500,
												Count:          3,
												Sum:            30,
												ExplicitBounds: []float64{10, 50},
												BucketCounts:   []uint64{1, 1, 1},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	pts, errs := DecodeMetrics(req)
	if len(errs) != 0 {
		t.Fatalf("unexpected errs: %v", errs)
	}
	// count + sum + 3 buckets = 5 rows
	if len(pts) != 5 {
		t.Fatalf("len(pts) = %d, want 5", len(pts))
	}
	var sawPlusInf bool
	for _, p := range pts {
		if p.Stat == "bucket_le" && p.Attrs["le"].Text() == "+Inf" {
			sawPlusInf = true
		}
	}
	if !sawPlusInf {
		t.Errorf("expected one bucket with le=+Inf for overflow bucket")
	}
}
