package model

import "errors"

// ErrNotFound is returned by point lookups (trace/span) that found
// nothing. Per spec.md §7, this is not a propagated error — callers
// translate it into an empty response with found=false.
var ErrNotFound = errors.New("not found")

// ErrInvalidID is returned when a trace/span ID hex string decodes to
// the wrong byte length.
var ErrInvalidID = errors.New("invalid id: wrong byte length")

// ErrCapacity is returned by the write pipeline when a signal's queue
// is full and the enqueue timeout elapses.
var ErrCapacity = errors.New("pipeline capacity exceeded")

// ErrBadRequest wraps a client-caused query error (bad regex, unknown
// aggregation, invalid duration, ...).
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string { return e.Message }

func BadRequest(msg string) error {
	return &ErrBadRequest{Message: msg}
}

// DecodeErrorKind enumerates why the decoder rejected a record.
type DecodeErrorKind int

const (
	MalformedProtobuf DecodeErrorKind = iota
	UnsupportedField
	InvalidID
	InvalidTimestamp
)

func (k DecodeErrorKind) String() string {
	switch k {
	case MalformedProtobuf:
		return "malformed_protobuf"
	case UnsupportedField:
		return "unsupported_field"
	case InvalidID:
		return "invalid_id"
	case InvalidTimestamp:
		return "invalid_timestamp"
	default:
		return "unknown"
	}
}

// DecodeError describes a batch of rejected records of one kind.
type DecodeError struct {
	Kind  DecodeErrorKind
	Count int
}

func (e *DecodeError) Error() string {
	return e.Kind.String()
}
