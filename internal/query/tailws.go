package query

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/pkg/logger"
)

// tailUpgrader mirrors carverauto-serviceradar's pkg/core/api/stream.go
// WebSocket upgrade setup (buffer sizes, permissive same-origin check
// since otell's query frontends are trusted-local per spec.md's
// Non-goals on auth).
var tailUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// tailMessage is the WebSocket counterpart to the SSE "data:"/"event:
// error" frames, grounded on serviceradar's StreamMessage envelope.
type tailMessage struct {
	Type   string           `json:"type"` // "record", "error", "ping"
	Record *model.LogRecord `json:"record,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// handleTailWS implements GET /v1/tail/ws: the WebSocket alternative
// to /v1/tail's SSE stream, for clients that prefer a bidirectional
// socket (browser dashboards, e.g.) over text/event-stream.
func (s *HTTPServer) handleTailWS(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		http.Error(w, "tail not available", http.StatusServiceUnavailable)
		return
	}

	filter, err := parseTailFilter(r.URL.Query().Get)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := tailUpgrader.Upgrade(w, r, nil)
	if err != nil {
		lg := logger.Component("query.tailws")
		lg.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go discardClientMessages(conn, cancel)

	logs, errs := s.broker.Subscribe()
	defer s.broker.Unsubscribe(logs)

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			_ = conn.WriteJSON(tailMessage{Type: "error", Error: err.Error()})
			return
		case rec, ok := <-logs:
			if !ok {
				return
			}
			if !filter.matches(rec) {
				continue
			}
			if err := conn.WriteJSON(tailMessage{Type: "record", Record: &rec}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteJSON(tailMessage{Type: "ping"}); err != nil {
				return
			}
		}
	}
}

// discardClientMessages drains and ignores inbound frames so the
// connection's read deadline keeps advancing and a client-initiated
// close is observed promptly, mirroring serviceradar's
// handleClientMessages cancel-on-disconnect idiom.
func discardClientMessages(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
