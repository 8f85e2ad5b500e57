package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/query"
)

var (
	traceLogsFlag string
	traceRoot     string
)

var traceCmd = &cobra.Command{
	Use:   "trace <trace_id>",
	Short: "Fetch every span of one trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceLogsFlag, "logs", "none", "related-log policy: none, bounded or all")
	traceCmd.Flags().StringVar(&traceRoot, "root", "", "optional span_id override, selects a subtree")
}

func runTrace(cmd *cobra.Command, args []string) error {
	resp, err := call(query.ApiRequest{
		Op: query.OpTrace,
		Trace: &model.TraceRequest{
			TraceID: args[0],
			Logs:    parseLogsPolicy(traceLogsFlag),
			Root:    traceRoot,
		},
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(resp.Trace)
	}

	tr := resp.Trace
	if !tr.Found {
		fmt.Println(styleDim.Render("trace not found"))
		return nil
	}

	rows := make([][]string, 0, len(tr.Spans))
	for _, sp := range tr.Spans {
		rows = append(rows, []string{
			sp.SpanID.Hex(), sp.ParentSpanID.Hex(), sp.Name, sp.Kind.String(),
			sp.Status.String(), fmt.Sprintf("%dms", (sp.EndTs-sp.StartTs)/1e6),
		})
	}
	renderTable([]string{"span_id", "parent", "name", "kind", "status", "duration"}, rows)
	if tr.Truncated {
		fmt.Println(styleDim.Render("(truncated)"))
	}
	return nil
}

func parseLogsPolicy(s string) model.LogsPolicy {
	switch s {
	case "bounded":
		return model.LogsBounded
	case "all":
		return model.LogsAll
	default:
		return model.LogsNone
	}
}
