package model

import "testing"

func TestAttrsTextSortedDeterministic(t *testing.T) {
	a := Attrs{
		"zebra": String("z"),
		"alpha": Int(1),
		"mid":   Bool(true),
	}
	want := "alpha=1 mid=true zebra=z"
	if got := a.Text(); got != want {
		t.Errorf("Attrs.Text() = %q, want %q", got, want)
	}
}

func TestAttrsJSONRoundTrip(t *testing.T) {
	a := Attrs{
		"name":  String("api"),
		"count": Int(42),
		"ratio": Float(0.5),
		"ok":    Bool(false),
	}
	js := a.JSON()

	parsed, err := ParseAttrsJSON(js)
	if err != nil {
		t.Fatalf("ParseAttrsJSON: %v", err)
	}
	if len(parsed) != len(a) {
		t.Fatalf("parsed len = %d, want %d", len(parsed), len(a))
	}
	if parsed["name"].Text() != "api" {
		t.Errorf("name = %q, want api", parsed["name"].Text())
	}
	if parsed["count"].Text() != "42" {
		t.Errorf("count = %q, want 42", parsed["count"].Text())
	}
}

func TestAttrsJSONStableKeyOrder(t *testing.T) {
	a1 := Attrs{"b": String("2"), "a": String("1")}
	a2 := Attrs{"a": String("1"), "b": String("2")}
	if a1.JSON() != a2.JSON() {
		t.Errorf("JSON() not stable across map construction order: %q vs %q", a1.JSON(), a2.JSON())
	}
}

func TestTraceIDHexLowercase(t *testing.T) {
	id, err := TraceIDFromHex("0123456789ABCDEF0123456789ABCDEF")
	if err != nil {
		t.Fatalf("TraceIDFromHex: %v", err)
	}
	if got := id.Hex(); got != "0123456789abcdef0123456789abcdef" {
		t.Errorf("Hex() = %q, want lowercase", got)
	}
}

func TestTraceIDFromHexRejectsWrongLength(t *testing.T) {
	if _, err := TraceIDFromHex("abcd"); err != ErrInvalidID {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestSeverityFromText(t *testing.T) {
	cases := map[string]Severity{
		"INFO":    SeverityInfo,
		"warn":    SeverityWarn,
		"ERROR":   SeverityError,
		"unknown": SeverityUnset,
	}
	for text, want := range cases {
		if got := SeverityFromText(text); got != want {
			t.Errorf("SeverityFromText(%q) = %d, want %d", text, got, want)
		}
	}
}
