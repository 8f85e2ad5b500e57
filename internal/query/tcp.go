package query

import (
	"context"
	"fmt"
	"net"

	"github.com/runmat-org/otell/pkg/logger"
)

// TCPServer serves the identical line-JSON dispatcher protocol as
// UDSServer, over TCP.
type TCPServer struct {
	addr string
	ls   *lineServer
}

func NewTCPServer(addr string, d *Dispatcher) (*TCPServer, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &TCPServer{addr: addr, ls: newLineServer(d, lis, "query.tcp")}, nil
}

func (s *TCPServer) Start() error {
	lg := logger.Component("query.tcp")
	lg.Info().Str("addr", s.addr).Msg("listening")
	return s.ls.serve()
}

func (s *TCPServer) Shutdown(_ context.Context) error {
	return s.ls.shutdown()
}
