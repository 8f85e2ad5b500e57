package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/query"
)

var (
	metricsAgg     string
	metricsGroupBy string
	metricsService string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics [name|list]",
	Short: "Aggregate one metric, or list known metric names",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMetrics,
}

func init() {
	metricsCmd.Flags().StringVar(&metricsAgg, "agg", "avg", "aggregation: avg, count, min, max, p50, p95, p99")
	metricsCmd.Flags().StringVar(&metricsGroupBy, "group-by", "", "\"\", \"service\" or an attribute key")
	metricsCmd.Flags().StringVar(&metricsService, "service", "", "filter to one service name")
}

func runMetrics(cmd *cobra.Command, args []string) error {
	f := model.Filter{Service: metricsService}

	if len(args) == 0 || args[0] == "list" {
		resp, err := call(query.ApiRequest{
			Op:          query.OpMetricsList,
			MetricsList: &model.MetricsListRequest{Filter: f},
		})
		if err != nil {
			return err
		}
		if jsonOutput {
			return renderJSON(resp.MetricsList)
		}
		rows := make([][]string, 0, len(resp.MetricsList.Names))
		for _, n := range resp.MetricsList.Names {
			rows = append(rows, []string{n.Name, fmt.Sprintf("%d", n.Count)})
		}
		renderTable([]string{"name", "count"}, rows)
		return nil
	}

	agg, ok := model.ParseMetricAgg(metricsAgg)
	if !ok {
		return withExitCode(ExitUsage, fmt.Errorf("unknown aggregation %q", metricsAgg))
	}

	resp, err := call(query.ApiRequest{
		Op: query.OpMetrics,
		Metrics: &model.MetricsRequest{
			Filter:  f,
			Name:    args[0],
			GroupBy: metricsGroupBy,
			Agg:     agg,
		},
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(resp.Metrics)
	}

	fmt.Printf("%d sample(s)\n", resp.Metrics.Points)
	rows := make([][]string, 0, len(resp.Metrics.Groups))
	for _, g := range resp.Metrics.Groups {
		rows = append(rows, []string{g.GroupKey, fmt.Sprintf("%g", g.Value), fmt.Sprintf("%d", g.Samples)})
	}
	renderTable([]string{"group", "value", "samples"}, rows)
	return nil
}
