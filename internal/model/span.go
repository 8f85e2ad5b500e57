package model

// SpanKind mirrors OTLP's span kind enum.
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
	SpanKindProducer
	SpanKindConsumer
)

func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "Server"
	case SpanKindClient:
		return "Client"
	case SpanKindProducer:
		return "Producer"
	case SpanKindConsumer:
		return "Consumer"
	default:
		return "Internal"
	}
}

// SpanStatus mirrors OTLP's status code enum.
type SpanStatus int

const (
	StatusUnset SpanStatus = iota
	StatusOk
	StatusError
)

func (s SpanStatus) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusError:
		return "Error"
	default:
		return "Unset"
	}
}

// SpanEvent is one ordered span event.
type SpanEvent struct {
	Ts    int64  `json:"ts"`
	Name  string `json:"name"`
	Attrs Attrs  `json:"attrs"`
}

// SpanLink is one span-to-span link.
type SpanLink struct {
	TraceID TraceID `json:"trace_id"`
	SpanID  SpanID  `json:"span_id"`
	Attrs   Attrs   `json:"attrs"`
}

// SpanRecord is a single decoded OTLP span.
type SpanRecord struct {
	TraceID       TraceID     `json:"trace_id"`
	SpanID        SpanID      `json:"span_id"`
	ParentSpanID  SpanID      `json:"parent_span_id"` // nil if root
	Service       string      `json:"service"`
	Name          string      `json:"name"`
	Kind          SpanKind    `json:"kind"`
	StartTs       int64       `json:"start_ts"`
	EndTs         int64       `json:"end_ts"` // invariant: EndTs >= StartTs
	Status        SpanStatus  `json:"status"`
	StatusMessage string      `json:"status_message"`
	Attrs         Attrs       `json:"attrs"`
	Events        []SpanEvent `json:"events"`
	Links         []SpanLink  `json:"links"`
}

func (s *SpanRecord) AttrsText() string {
	return s.Attrs.Text()
}
