package model

import "strings"

// Severity is the OTLP severity number, 1-24, 0 = unset.
type Severity int32

const (
	SeverityUnset Severity = 0
	SeverityTrace Severity = 1
	SeverityDebug Severity = 5
	SeverityInfo  Severity = 9
	SeverityWarn  Severity = 13
	SeverityError Severity = 17
	SeverityFatal Severity = 21
)

// SeverityFromText maps a textual level to the low value of its OTLP
// block of 4, per spec.md §3 invariants.
func SeverityFromText(text string) Severity {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "TRACE", "TRACE2", "TRACE3", "TRACE4":
		return SeverityTrace
	case "DEBUG", "DEBUG2", "DEBUG3", "DEBUG4":
		return SeverityDebug
	case "INFO", "INFO2", "INFO3", "INFO4":
		return SeverityInfo
	case "WARN", "WARNING", "WARN2", "WARN3", "WARN4":
		return SeverityWarn
	case "ERROR", "ERROR2", "ERROR3", "ERROR4":
		return SeverityError
	case "FATAL", "FATAL2", "FATAL3", "FATAL4", "CRITICAL", "PANIC":
		return SeverityFatal
	default:
		return SeverityUnset
	}
}

// Text renders the block name for a severity number.
func (s Severity) Text() string {
	switch {
	case s == SeverityUnset:
		return "UNSET"
	case s >= SeverityFatal:
		return "FATAL"
	case s >= SeverityError:
		return "ERROR"
	case s >= SeverityWarn:
		return "WARN"
	case s >= SeverityInfo:
		return "INFO"
	case s >= SeverityDebug:
		return "DEBUG"
	default:
		return "TRACE"
	}
}
