package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/query"
)

var (
	tracesService string
	tracesLimit   int
)

var tracesCmd = &cobra.Command{
	Use:   "traces",
	Short: "List recent traces",
	Args:  cobra.NoArgs,
	RunE:  runTraces,
}

func init() {
	tracesCmd.Flags().StringVar(&tracesService, "service", "", "filter to one service name")
	tracesCmd.Flags().IntVar(&tracesLimit, "limit", 50, "maximum traces to return")
}

func runTraces(cmd *cobra.Command, args []string) error {
	req := query.ApiRequest{
		Op: query.OpTraces,
		Traces: &model.TracesRequest{
			Filter: model.Filter{Service: tracesService, Limit: tracesLimit},
		},
	}

	resp, err := call(req)
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(resp.Traces)
	}

	rows := make([][]string, 0, len(resp.Traces.Traces))
	for _, t := range resp.Traces.Traces {
		rows = append(rows, []string{
			t.TraceID, t.RootSpanName, formatStatus(t.Status == model.StatusOk),
			strconv.Itoa(t.SpanCount), fmt.Sprintf("%dms", t.DurationNs/1e6), formatTs(t.StartTs),
		})
	}
	renderTable([]string{"trace_id", "root", "status", "spans", "duration", "start"}, rows)
	return nil
}
