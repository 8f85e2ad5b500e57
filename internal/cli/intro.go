package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/query"
)

var introHuman bool

// introCmd is the onboarding entry point an LLM-driven agent (or a
// person, with --human) runs first to learn what otell is and
// whether a daemon is already reachable — a thin collaborator per
// spec.md §1, specified only by the interface it uses against the
// dispatcher (status) and config.
var introCmd = &cobra.Command{
	Use:   "intro",
	Short: "Print a short orientation: what otell is, and whether a daemon is reachable",
	Args:  cobra.NoArgs,
	RunE:  runIntro,
}

func init() {
	introCmd.Flags().BoolVar(&introHuman, "human", false, "prose orientation for a person instead of a terse agent summary")
}

func runIntro(cmd *cobra.Command, args []string) error {
	resp, statusErr := call(query.ApiRequest{Op: query.OpStatus})

	if !introHuman {
		out := map[string]any{
			"name":        "otell",
			"description": "local-first OpenTelemetry ingest and query utility",
			"uds_path":    cfg.QueryUDSPath,
			"http_addr":   cfg.QueryHTTPAddr,
			"connected":   statusErr == nil,
		}
		if statusErr == nil {
			out["status"] = resp.Status
		}
		return renderJSON(out)
	}

	fmt.Println("otell — local-first OpenTelemetry ingest and query utility")
	fmt.Println()
	fmt.Println("Send OTLP logs/traces/metrics to the gRPC (4317) or HTTP (4318) ingest")
	fmt.Println("endpoints, then query them back with `otell search`, `otell traces`,")
	fmt.Println("`otell trace`, `otell span`, `otell metrics`, or `otell tail`.")
	fmt.Println()
	if statusErr != nil {
		fmt.Println(styleDim.Render(fmt.Sprintf("no daemon reachable at %s (%v) — start one with `otell run`", cfg.QueryUDSPath, statusErr)))
		return nil
	}
	fmt.Printf("daemon reachable at %s\n", cfg.QueryUDSPath)
	fmt.Printf("logs=%d spans=%d metric rows=%d, db at %s\n",
		resp.Status.LogCount, resp.Status.SpanCount, resp.Status.MetricCount, resp.Status.DBPath)
	return nil
}
