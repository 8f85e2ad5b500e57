package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/runmat-org/otell/internal/query"
)

// dialTimeout bounds how long a client command waits to connect to a
// running daemon before reporting ExitNotConnected.
const dialTimeout = 2 * time.Second

// call dials the configured query frontend — a TCP host:port if
// the --addr flag names one, the Unix domain socket
// otherwise — sends one line-JSON ApiRequest and decodes the matching
// ApiResponse line, mirroring the protocol internal/query/lineserver.go
// serves.
func call(req query.ApiRequest) (query.ApiResponse, error) {
	network, address := "unix", cfg.QueryUDSPath
	if addr != "" {
		network, address = "tcp", addr
	}

	conn, err := net.DialTimeout(network, address, dialTimeout)
	if err != nil {
		return query.ApiResponse{}, withExitCode(ExitNotConnected,
			fmt.Errorf("connecting to %s %s: %w", network, address, err))
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		return query.ApiResponse{}, withExitCode(ExitNotConnected, fmt.Errorf("sending request: %w", err))
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return query.ApiResponse{}, withExitCode(ExitNotConnected, fmt.Errorf("reading response: %w", err))
		}
		return query.ApiResponse{}, withExitCode(ExitNotConnected, fmt.Errorf("connection closed with no response"))
	}

	var resp query.ApiResponse
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return query.ApiResponse{}, withExitCode(ExitQueryError, fmt.Errorf("decoding response: %w", err))
	}
	if resp.Error != "" {
		return resp, withExitCode(ExitQueryError, fmt.Errorf("%s", resp.Error))
	}
	return resp, nil
}
