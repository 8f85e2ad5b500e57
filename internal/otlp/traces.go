package otlp

import (
	"github.com/runmat-org/otell/internal/model"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
)

// DecodeTraces flattens an OTLP trace export request into SpanRecords.
// Unknown span kind/status values degrade to Internal/Unset rather
// than rejecting the record.
func DecodeTraces(req *coltracepb.ExportTraceServiceRequest) ([]model.SpanRecord, []model.DecodeError) {
	if req == nil {
		return nil, []model.DecodeError{{Kind: model.MalformedProtobuf, Count: 1}}
	}

	var out []model.SpanRecord
	var badTs, badID int

	for _, rs := range req.ResourceSpans {
		resAttrs := resourceAttrs(rs.GetResource())
		service := resourceServiceName(resAttrs)

		for _, ss := range rs.ScopeSpans {
			scopeAttrs := model.Attrs{}
			if sc := ss.GetScope(); sc != nil {
				scopeAttrs = model.WithScopePrefix(extractAttributes(sc.GetAttributes()), "scope.")
			}

			for _, span := range ss.Spans {
				traceID := model.TraceID(span.GetTraceId())
				spanID := model.SpanID(span.GetSpanId())
				if !traceID.Valid() || traceID.IsZero() || !spanID.Valid() || spanID.IsZero() {
					badID++
					continue
				}

				start := span.GetStartTimeUnixNano()
				end := span.GetEndTimeUnixNano()
				if start == 0 {
					badTs++
					continue
				}
				if end < start {
					end = start
				}

				var parent model.SpanID
				if p := model.SpanID(span.GetParentSpanId()); p.Valid() && !p.IsZero() {
					parent = p
				}

				attrs := resAttrs.Merge(scopeAttrs).Merge(extractAttributes(span.GetAttributes()))

				out = append(out, model.SpanRecord{
					TraceID:       traceID,
					SpanID:        spanID,
					ParentSpanID:  parent,
					Service:       service,
					Name:          span.GetName(),
					Kind:          spanKind(span.GetKind()),
					StartTs:       int64(start),
					EndTs:         int64(end),
					Status:        spanStatus(span.GetStatus()),
					StatusMessage: span.GetStatus().GetMessage(),
					Attrs:         attrs,
					Events:        spanEvents(span.GetEvents()),
					Links:         spanLinks(span.GetLinks()),
				})
			}
		}
	}

	var errs []model.DecodeError
	if badTs > 0 {
		errs = append(errs, model.DecodeError{Kind: model.InvalidTimestamp, Count: badTs})
	}
	if badID > 0 {
		errs = append(errs, model.DecodeError{Kind: model.InvalidID, Count: badID})
	}
	return out, errs
}

func spanKind(k tracepb.Span_SpanKind) model.SpanKind {
	switch k {
	case tracepb.Span_SPAN_KIND_SERVER:
		return model.SpanKindServer
	case tracepb.Span_SPAN_KIND_CLIENT:
		return model.SpanKindClient
	case tracepb.Span_SPAN_KIND_PRODUCER:
		return model.SpanKindProducer
	case tracepb.Span_SPAN_KIND_CONSUMER:
		return model.SpanKindConsumer
	default:
		return model.SpanKindInternal
	}
}

func spanStatus(s *tracepb.Status) model.SpanStatus {
	if s == nil {
		return model.StatusUnset
	}
	switch s.GetCode() {
	case tracepb.Status_STATUS_CODE_OK:
		return model.StatusOk
	case tracepb.Status_STATUS_CODE_ERROR:
		return model.StatusError
	default:
		return model.StatusUnset
	}
}

func spanEvents(events []*tracepb.Span_Event) []model.SpanEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]model.SpanEvent, len(events))
	for i, e := range events {
		out[i] = model.SpanEvent{
			Ts:    int64(e.GetTimeUnixNano()),
			Name:  e.GetName(),
			Attrs: extractAttributes(e.GetAttributes()),
		}
	}
	return out
}

func spanLinks(links []*tracepb.Span_Link) []model.SpanLink {
	if len(links) == 0 {
		return nil
	}
	out := make([]model.SpanLink, len(links))
	for i, l := range links {
		out[i] = model.SpanLink{
			TraceID: model.TraceID(l.GetTraceId()),
			SpanID:  model.SpanID(l.GetSpanId()),
			Attrs:   extractAttributes(l.GetAttributes()),
		}
	}
	return out
}
