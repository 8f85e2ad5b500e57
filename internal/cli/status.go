package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/query"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report store health and sizing",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	resp, err := call(query.ApiRequest{Op: query.OpStatus})
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(resp.Status)
	}

	st := resp.Status
	fmt.Printf("db_path:      %s\n", st.DBPath)
	fmt.Printf("size:         %d bytes\n", st.SizeBytes)
	fmt.Printf("logs:         %d\n", st.LogCount)
	fmt.Printf("spans:        %d\n", st.SpanCount)
	fmt.Printf("metric rows:  %d\n", st.MetricCount)
	if st.OldestTs != nil {
		fmt.Printf("oldest:       %s\n", formatTs(*st.OldestTs))
	}
	if st.NewestTs != nil {
		fmt.Printf("newest:       %s\n", formatTs(*st.NewestTs))
	}
	return nil
}
