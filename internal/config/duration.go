package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses otell's human-duration format: a number
// (decimals allowed) followed by one of ms|s|m|h|d. No ecosystem library in the
// retrieved corpus offers this exact suffix grammar (viper/cobra defer
// to Go's own time.ParseDuration, which rejects "d" for days), so this
// stays a small hand-rolled parser per spec.md §4.6.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	unit := time.Duration(0)
	var numPart string
	switch {
	case strings.HasSuffix(s, "ms"):
		unit = time.Millisecond
		numPart = strings.TrimSuffix(s, "ms")
	case strings.HasSuffix(s, "s"):
		unit = time.Second
		numPart = strings.TrimSuffix(s, "s")
	case strings.HasSuffix(s, "m"):
		unit = time.Minute
		numPart = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "h"):
		unit = time.Hour
		numPart = strings.TrimSuffix(s, "h")
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
		numPart = strings.TrimSuffix(s, "d")
	default:
		return 0, fmt.Errorf("duration %q missing ms|s|m|h|d suffix", s)
	}

	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	return time.Duration(n * float64(unit)), nil
}

// ParseBytes parses a byte-size string with optional KiB/MiB/GiB/TiB
// suffix (binary units, matching spec.md's "2 GiB" default), or a
// bare integer number of bytes.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	multipliers := []struct {
		suffix string
		factor int64
	}{
		{"TiB", 1 << 40},
		{"GiB", 1 << 30},
		{"MiB", 1 << 20},
		{"KiB", 1 << 10},
		{"B", 1},
	}

	for _, m := range multipliers {
		if strings.HasSuffix(s, m.suffix) {
			numPart := strings.TrimSuffix(s, m.suffix)
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("byte size %q: %w", s, err)
			}
			return int64(n * float64(m.factor)), nil
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("byte size %q: %w", s, err)
	}
	return n, nil
}
