package query

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/runmat-org/otell/pkg/logger"
)

// UDSServer serves the line-JSON dispatcher protocol over a Unix
// domain socket created with owner-only permissions, per spec.md §6.
type UDSServer struct {
	path string
	ls   *lineServer
}

// NewUDSServer binds the socket at path, removing any stale socket
// file left behind by a prior unclean shutdown.
func NewUDSServer(path string, d *Dispatcher) (*UDSServer, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}

	lis, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		lis.Close()
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}

	return &UDSServer{path: path, ls: newLineServer(d, lis, "query.uds")}, nil
}

// Start serves until Shutdown is called.
func (s *UDSServer) Start() error {
	lg := logger.Component("query.uds")
	lg.Info().Str("path", s.path).Msg("listening")
	return s.ls.serve()
}

// Shutdown stops accepting connections and removes the socket file.
func (s *UDSServer) Shutdown(_ context.Context) error {
	err := s.ls.shutdown()
	os.Remove(s.path)
	return err
}
