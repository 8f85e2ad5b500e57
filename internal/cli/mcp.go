package cli

import (
	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/mcpserver"
	"github.com/runmat-org/otell/internal/query"
)

// mcpCmd dials the running daemon's TCP/UDS query frontend and
// exposes it as an MCP stdio server — the "trivial line-JSON
// dispatch" wrapper spec.md §1 calls out as a thin collaborator,
// handing mcpserver.NewRemote the remoteCall shim instead of an
// in-process *store.Store.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query dispatcher as an MCP stdio server",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv := mcpserver.NewRemote(remoteCall)
	return srv.ServeStdio(cmd.Context())
}

// remoteCall adapts the CLI's line-JSON client into the function
// signature mcpserver.NewRemote expects, so the MCP tool handlers
// dispatch through the same wire protocol the search/traces/... CLI
// subcommands use rather than needing direct store access.
func remoteCall(req query.ApiRequest) query.ApiResponse {
	resp, err := call(req)
	if err != nil && resp.Error == "" {
		resp.Error = err.Error()
	}
	return resp
}
