package config

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"500ms", 500 * time.Millisecond},
		{"30s", 30 * time.Second},
		{"5m", 5 * time.Minute},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1.5h", 90 * time.Minute},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseDurationRejectsMissingSuffix(t *testing.T) {
	if _, err := ParseDuration("42"); err == nil {
		t.Error("expected error for duration without a unit suffix")
	}
}

func TestParseDurationRejectsEmpty(t *testing.T) {
	if _, err := ParseDuration(""); err == nil {
		t.Error("expected error for empty duration")
	}
}

func TestParseBytes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"2GiB", 2 << 30},
		{"512MiB", 512 << 20},
		{"1KiB", 1 << 10},
		{"10TiB", 10 << 40},
		{"1024", 1024},
		{"1024B", 1024},
	}
	for _, c := range cases {
		got, err := ParseBytes(c.in)
		if err != nil {
			t.Fatalf("ParseBytes(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseBytes(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestParseBytesRejectsGarbage(t *testing.T) {
	if _, err := ParseBytes("not-a-size"); err == nil {
		t.Error("expected error for unparseable byte size")
	}
}
