package query

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/runmat-org/otell/pkg/logger"
)

// lineServer is the shared newline-delimited JSON request/response
// loop behind both the UDS and TCP query frontends — one request per
// line, one response per line, framed identically per spec.md §4.5.
type lineServer struct {
	dispatcher *Dispatcher
	listener   net.Listener
	log        zerolog.Logger

	wg       sync.WaitGroup
	closing  chan struct{}
	closeOne sync.Once
}

func newLineServer(d *Dispatcher, lis net.Listener, component string) *lineServer {
	return &lineServer{
		dispatcher: d,
		listener:   lis,
		log:        logger.Component(component),
		closing:    make(chan struct{}),
	}
}

// serve accepts connections until the listener is closed.
func (s *lineServer) serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
				s.wg.Wait()
				return nil
			default:
				return err
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *lineServer) shutdown() error {
	s.closeOne.Do(func() { close(s.closing) })
	return s.listener.Close()
}

func (s *lineServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// connID correlates this connection's request/response pairs in
	// the log across concurrent line-protocol clients, the way the
	// teacher's registry stamps a uuid onto anything that needs a
	// stable handle with no natural key of its own.
	connID := uuid.New().String()
	connLog := s.log.With().Str("conn_id", connID).Logger()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req ApiRequest
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(ApiResponse{Error: "invalid json request: " + err.Error()})
			continue
		}

		resp := s.dispatcher.Dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			connLog.Warn().Err(err).Msg("writing response")
			return
		}
	}
	if err := scanner.Err(); err != nil {
		connLog.Warn().Err(err).Msg("reading request line")
	}
}
