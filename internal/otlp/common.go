// Package otlp decodes OTLP protobuf export requests into the flat
// model.* record types the store and query layers operate on.
package otlp

import (
	"github.com/runmat-org/otell/internal/model"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
)

// extractAttributes converts OTLP KeyValue attributes into model.Attrs,
// preserving each value's native kind instead of stringifying it —
// the scan form (Attrs.Text) is flattened later, at insert time.
func extractAttributes(attrs []*commonpb.KeyValue) model.Attrs {
	out := make(model.Attrs, len(attrs))
	for _, kv := range attrs {
		out[kv.Key] = anyValueToModel(kv.GetValue())
	}
	return out
}

func anyValueToModel(v *commonpb.AnyValue) model.Value {
	if v == nil {
		return model.String("")
	}
	switch t := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return model.String(t.StringValue)
	case *commonpb.AnyValue_BoolValue:
		return model.Bool(t.BoolValue)
	case *commonpb.AnyValue_IntValue:
		return model.Int(t.IntValue)
	case *commonpb.AnyValue_DoubleValue:
		return model.Float(t.DoubleValue)
	case *commonpb.AnyValue_ArrayValue:
		vals := t.ArrayValue.GetValues()
		list := make([]model.Value, len(vals))
		for i, e := range vals {
			list[i] = anyValueToModel(e)
		}
		return model.List(list)
	case *commonpb.AnyValue_KvlistValue:
		// Nested maps degrade to their JSON encoding, wrapped as a
		// single string — spec.md §3 scope note.
		nested := extractAttributes(t.KvlistValue.GetValues())
		return model.String(nested.JSON())
	case *commonpb.AnyValue_BytesValue:
		return model.String(string(t.BytesValue))
	default:
		return model.String("")
	}
}

// resourceServiceName extracts service.name from resource attributes,
// returning "" (stored as NULL) when the resource carries none.
func resourceServiceName(attrs model.Attrs) string {
	if v, ok := attrs["service.name"]; ok && v.Text() != "" {
		return v.Text()
	}
	return ""
}

// resourceAttrs decodes a Resource's attribute set, returning empty
// Attrs for a nil resource.
func resourceAttrs(r *resourcepb.Resource) model.Attrs {
	if r == nil {
		return model.Attrs{}
	}
	return extractAttributes(r.GetAttributes())
}
