package store

import "github.com/runmat-org/otell/internal/model"

// hexTraceID decodes a stored hex trace id, returning nil for an
// empty or malformed value rather than failing the read path — the
// store only ever wrote values it itself validated at ingest.
func hexTraceID(hex string) model.TraceID {
	if hex == "" {
		return nil
	}
	id, err := model.TraceIDFromHex(hex)
	if err != nil {
		return nil
	}
	return id
}

func hexSpanID(hex string) model.SpanID {
	if hex == "" {
		return nil
	}
	id, err := model.SpanIDFromHex(hex)
	if err != nil {
		return nil
	}
	return id
}
