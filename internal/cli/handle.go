package cli

import (
	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/query"
)

var handleCmd = &cobra.Command{
	Use:   "handle <base64>",
	Short: "Re-run the query a handle was computed from",
	Args:  cobra.ExactArgs(1),
	RunE:  runHandle,
}

func runHandle(cmd *cobra.Command, args []string) error {
	resp, err := call(query.ApiRequest{Op: query.OpResolveHandle, Handle: args[0]})
	if err != nil {
		return err
	}
	return renderJSON(resp)
}
