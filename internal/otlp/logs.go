package otlp

import (
	"github.com/runmat-org/otell/internal/model"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
)

// DecodeLogs flattens an OTLP logs export request into LogRecords,
// folding resource attrs into service/attrs and scope attrs under the
// "scope." prefix. A zero timestamp falls back to the observed
// timestamp; records with neither are rejected.
func DecodeLogs(req *collogspb.ExportLogsServiceRequest) ([]model.LogRecord, []model.DecodeError) {
	if req == nil {
		return nil, []model.DecodeError{{Kind: model.MalformedProtobuf, Count: 1}}
	}

	var out []model.LogRecord
	var badTs, badID int

	for _, rl := range req.ResourceLogs {
		resAttrs := resourceAttrs(rl.GetResource())
		service := resourceServiceName(resAttrs)

		for _, sl := range rl.ScopeLogs {
			scopeAttrs := model.Attrs{}
			if sc := sl.GetScope(); sc != nil {
				scopeAttrs = model.WithScopePrefix(extractAttributes(sc.GetAttributes()), "scope.")
			}

			for _, lr := range sl.LogRecords {
				ts := lr.GetTimeUnixNano()
				if ts == 0 {
					ts = lr.GetObservedTimeUnixNano()
				}
				if ts == 0 {
					badTs++
					continue
				}

				traceID := model.TraceID(lr.GetTraceId())
				spanID := model.SpanID(lr.GetSpanId())
				if !traceID.Valid() || !spanID.Valid() {
					badID++
					continue
				}

				sev := model.Severity(lr.GetSeverityNumber())
				if sev == model.SeverityUnset && lr.GetSeverityText() != "" {
					sev = model.SeverityFromText(lr.GetSeverityText())
				}

				attrs := resAttrs.Merge(scopeAttrs).Merge(extractAttributes(lr.GetAttributes()))

				out = append(out, model.LogRecord{
					Ts:       int64(ts),
					Service:  service,
					Severity: sev,
					TraceID:  traceID,
					SpanID:   spanID,
					Body:     anyValueToModel(lr.GetBody()).Text(),
					Attrs:    attrs,
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
