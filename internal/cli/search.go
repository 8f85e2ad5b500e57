package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/query"
)

var (
	searchFixed        bool
	searchIgnoreCase   bool
	searchService      string
	searchSeverityGte  int
	searchLimit        int
	searchCountOnly    bool
	searchIncludeStats bool
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search logs by substring or regex",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchFixed, "fixed", false, "treat pattern as a literal substring")
	searchCmd.Flags().BoolVar(&searchIgnoreCase, "ignore-case", false, "case-insensitive match")
	searchCmd.Flags().StringVar(&searchService, "service", "", "filter to one service name")
	searchCmd.Flags().IntVar(&searchSeverityGte, "severity-gte", 0, "minimum severity number, inclusive")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 100, "maximum records to return")
	searchCmd.Flags().BoolVar(&searchCountOnly, "count-only", false, "return only the match count")
	searchCmd.Flags().BoolVar(&searchIncludeStats, "stats", false, "include by_service/by_severity breakdowns")
}

func runSearch(cmd *cobra.Command, args []string) error {
	f := model.Filter{Service: searchService, Limit: searchLimit}
	if searchSeverityGte != 0 {
		sev := model.Severity(searchSeverityGte)
		f.SeverityGte = &sev
	}

	req := query.ApiRequest{
		Op: query.OpSearch,
		Search: &model.SearchRequest{
			Filter:       f,
			Pattern:      args[0],
			Fixed:        searchFixed,
			IgnoreCase:   searchIgnoreCase,
			CountOnly:    searchCountOnly,
			IncludeStats: searchIncludeStats,
		},
	}

	resp, err := call(req)
	if err != nil {
		return err
	}
	if jsonOutput {
		return renderJSON(resp.Search)
	}

	sr := resp.Search
	fmt.Printf("%d match(es)\n", sr.Total)
	rows := make([][]string, 0, len(sr.Records))
	for _, hit := range sr.Records {
		marker := " "
		if hit.IsMatch {
			marker = "*"
		}
		rows = append(rows, []string{marker, formatTs(hit.Record.Ts), hit.Record.Service, hit.Record.Severity.Text(), hit.Record.Body})
	}
	renderTable([]string{"", "ts", "service", "sev", "body"}, rows)
	return nil
}
