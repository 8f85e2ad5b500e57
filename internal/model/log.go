package model

// LogRecord is a single decoded OTLP log line.
type LogRecord struct {
	Ts       int64    `json:"ts"`       // nanoseconds since Unix epoch, UTC
	Service  string   `json:"service"`  // empty means null/unknown
	Severity Severity `json:"severity"` // 0 = unset
	TraceID  TraceID  `json:"trace_id"` // nil if absent
	SpanID   SpanID   `json:"span_id"`  // nil if absent
	Body     string   `json:"body"`
	Attrs    Attrs    `json:"attrs"`
}

// AttrsText returns the flat "key=value" scan form used by Search.
func (l *LogRecord) AttrsText() string {
	return l.Attrs.Text()
}
