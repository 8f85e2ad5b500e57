package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the underlying type of a Value.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindFloat
	KindList
)

// Value is a scalar OTLP attribute value, or a list of scalars.
// Nested maps degrade to their JSON string form, per spec.
type Value struct {
	Kind Kind
	Str  string
	Bool bool
	Int  int64
	Flt  float64
	List []Value
}

func String(s string) Value  { return Value{Kind: KindString, Str: s} }
func Bool(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value      { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value  { return Value{Kind: KindFloat, Flt: f} }
func List(v []Value) Value   { return Value{Kind: KindList, List: v} }

// Text renders the value the way it appears in the flat key=value scan form.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.Text()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return ""
	}
}

// MarshalJSON encodes a Value as its natural JSON representation.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Flt)
	case KindList:
		return json.Marshal(v.List)
	default:
		return json.Marshal(nil)
	}
}

// UnmarshalJSON restores a Value from its natural JSON representation.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

func fromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case []interface{}:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = fromInterface(e)
		}
		return List(list)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Attrs is an ordered-by-key attribute map: service, log, span and
// metric attributes are all represented this way.
type Attrs map[string]Value

// JSON encodes attrs as a canonical JSON object (sorted keys), the
// persisted string form of the attrs column.
func (a Attrs) JSON() string {
	if len(a) == 0 {
		return "{}"
	}
	keys := sortedKeys(a)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		vb, _ := json.Marshal(a[k])
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}

// Text renders the flat "key=value key=value" scan form used for
// substring search over attrs, with keys sorted alphabetically so the
// representation is deterministic regardless of ingest order — this
// answers the open question in spec.md §9 about attribute ordering.
func (a Attrs) Text() string {
	if len(a) == 0 {
		return ""
	}
	keys := sortedKeys(a)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + a[k].Text()
	}
	return strings.Join(parts, " ")
}

// ParseAttrsJSON decodes the persisted JSON form back into Attrs.
func ParseAttrsJSON(s string) (Attrs, error) {
	if s == "" || s == "{}" {
		return Attrs{}, nil
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	out := make(Attrs, len(raw))
	for k, v := range raw {
		out[k] = fromInterface(v)
	}
	return out, nil
}

// Merge returns a new Attrs with other's keys overlaid on a, favoring
// other on key collision — used to fold resource/scope attrs into a
// child record.
func (a Attrs) Merge(other Attrs) Attrs {
	out := make(Attrs, len(a)+len(other))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

func sortedKeys(a Attrs) []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WithScopePrefix returns a copy of attrs with every key prefixed,
// used to fold scope attributes in under "scope.".
func WithScopePrefix(a Attrs, prefix string) Attrs {
	if len(a) == 0 {
		return a
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[prefix+k] = v
	}
	return out
}
