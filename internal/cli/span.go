package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/query"
)

var spanLogsFlag string

var spanCmd = &cobra.Command{
	Use:   "span <trace_id> <span_id>",
	Short: "Fetch one span",
	Args:  cobra.ExactArgs(2),
	RunE:  runSpan,
}

func init() {
	spanCmd.Flags().StringVar(&spanLogsFlag, "logs", "none", "related-log policy: none, bounded or all")
}

func runSpan(cmd *cobra.Command, args []string) error {
	resp, err := call(query.ApiRequest{
		Op: query.OpSpan,
		Span: &model.SpanRequest{
			TraceID: args[0],
			SpanID:  args[1],
			Logs:    parseLogsPolicy(spanLogsFlag),
		},
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(resp.Span)
	}

	sr := resp.Span
	if !sr.Found {
		fmt.Println(styleDim.Render("span not found"))
		return nil
	}

	sp := sr.Span
	fmt.Printf("%s  %s  kind=%s  status=%s  duration=%dms\n",
		sp.SpanID.Hex(), sp.Name, sp.Kind.String(), sp.Status.String(), (sp.EndTs-sp.StartTs)/1e6)
	for _, ev := range sp.Events {
		fmt.Printf("  event  %s  %s\n", formatTs(ev.Ts), ev.Name)
	}
	for _, rec := range sr.Logs {
		fmt.Printf("  log    %s  %s\n", formatTs(rec.Ts), rec.Body)
	}
	return nil
}
