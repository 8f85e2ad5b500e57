package query

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/runmat-org/otell/internal/model"
)

// tailFilter is the filter subset /v1/tail accepts: a pattern over
// body/attrs_text plus service and minimum severity, per spec.md
// §4.5. It is intentionally smaller than model.SearchRequest since
// tail has no window/limit/context semantics — it streams forward
// only.
type tailFilter struct {
	matcher     func(string) bool
	service     string
	severityGte model.Severity
}

func parseTailFilter(q func(string) string) (tailFilter, error) {
	pattern := q("pattern")
	fixed := q("fixed") == "true"
	ignoreCase := q("ignore_case") == "true"

	var matcher func(string) bool
	if pattern != "" {
		if fixed {
			needle := pattern
			if ignoreCase {
				needle = strings.ToLower(needle)
			}
			matcher = func(s string) bool {
				if ignoreCase {
					s = strings.ToLower(s)
				}
				return strings.Contains(s, needle)
			}
		} else {
			expr := pattern
			if ignoreCase {
				expr = "(?i)" + expr
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return tailFilter{}, fmt.Errorf("invalid pattern: %w", err)
			}
			matcher = re.MatchString
		}
	}

	var sev model.Severity
	if s := q("severity_gte"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return tailFilter{}, fmt.Errorf("invalid severity_gte: %w", err)
		}
		sev = model.Severity(n)
	}

	return tailFilter{matcher: matcher, service: q("service"), severityGte: sev}, nil
}

func (f tailFilter) matches(rec model.LogRecord) bool {
	if f.service != "" && rec.Service != f.service {
		return false
	}
	if f.severityGte != 0 && rec.Severity < f.severityGte {
		return false
	}
	if f.matcher != nil && !f.matcher(rec.Body) && !f.matcher(rec.AttrsText()) {
		return false
	}
	return true
}

// handleTail implements GET /v1/tail: subscribes to the broker and
// streams matching new log records as "data: <json>\n\n" SSE frames,
// grounded on ashita-ai-akashi's HandleSubscribe (flusher setup,
// write-deadline disable for the long-lived connection, keepalive
// ticker) adapted to filter each record against tailFilter before
// writing it.
func (s *HTTPServer) handleTail(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		http.Error(w, "tail not available", http.StatusServiceUnavailable)
		return
	}

	filter, err := parseTailFilter(r.URL.Query().Get)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	logs, errs := s.broker.Subscribe()
	defer s.broker.Unsubscribe(logs)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", err.Error())
			flusher.Flush()
			return
		case rec, ok := <-logs:
			if !ok {
				return
			}
			if !filter.matches(rec) {
				continue
			}
			payload, marshalErr := json.Marshal(rec)
			if marshalErr != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		case <-keepalive.C:
			if _, err := w.Write([]byte(":keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
