package model

import (
	"encoding/hex"
	"encoding/json"
)

// TraceID is 16 raw bytes, or nil when absent.
type TraceID []byte

// SpanID is 8 raw bytes, or nil when absent.
type SpanID []byte

// Hex lowercases the canonical hex representation, per spec.md's
// invariant that hex representations are always lowercase.
func (t TraceID) Hex() string {
	if len(t) == 0 {
		return ""
	}
	return hex.EncodeToString(t)
}

func (s SpanID) Hex() string {
	if len(s) == 0 {
		return ""
	}
	return hex.EncodeToString(s)
}

// Valid reports whether the ID is empty or has the exact length OTLP
// requires.
func (t TraceID) Valid() bool { return len(t) == 0 || len(t) == 16 }
func (s SpanID) Valid() bool  { return len(s) == 0 || len(s) == 8 }

// TraceIDFromHex decodes a hex string into a TraceID, validating length.
func TraceIDFromHex(s string) (TraceID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 16 {
		return nil, ErrInvalidID
	}
	return TraceID(b), nil
}

// SpanIDFromHex decodes a hex string into a SpanID, validating length.
func SpanIDFromHex(s string) (SpanID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 8 {
		return nil, ErrInvalidID
	}
	return SpanID(b), nil
}

// IsZero reports whether every byte is zero (OTLP's "absent" encoding
// for parent span IDs).
func (s SpanID) IsZero() bool {
	for _, b := range s {
		if b != 0 {
			return false
		}
	}
	return true
}

func (t TraceID) IsZero() bool {
	for _, b := range t {
		if b != 0 {
			return false
		}
	}
	return true
}

// MarshalJSON renders the lowercase hex form on the wire instead of
// Go's default base64-for-[]byte encoding, per spec.md's lowercase-hex
// invariant.
func (t TraceID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Hex())
}

func (t *TraceID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = nil
		return nil
	}
	id, err := TraceIDFromHex(s)
	if err != nil {
		return err
	}
	*t = id
	return nil
}

func (s SpanID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Hex())
}

func (s *SpanID) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = nil
		return nil
	}
	id, err := SpanIDFromHex(str)
	if err != nil {
		return err
	}
	*s = id
	return nil
}
