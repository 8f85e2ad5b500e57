package cli

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

var (
	tailFixed      bool
	tailIgnoreCase bool
	tailService    string
)

// tailCmd streams GET /v1/tail over HTTP — the one query path with no
// UDS/TCP line-JSON equivalent, since a long-lived SSE stream doesn't
// fit the lineserver's one-request-one-response framing.
var tailCmd = &cobra.Command{
	Use:   "tail [pattern]",
	Short: "Stream new logs matching pattern as they arrive",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTail,
}

func init() {
	tailCmd.Flags().BoolVar(&tailFixed, "fixed", false, "treat pattern as a literal substring")
	tailCmd.Flags().BoolVar(&tailIgnoreCase, "ignore-case", false, "case-insensitive match")
	tailCmd.Flags().StringVar(&tailService, "service", "", "filter to one service name")
}

func runTail(cmd *cobra.Command, args []string) error {
	httpAddr := cfg.QueryHTTPAddr
	if addr != "" {
		httpAddr = addr
	}

	q := url.Values{}
	if len(args) == 1 {
		q.Set("pattern", args[0])
	}
	if tailFixed {
		q.Set("fixed", "true")
	}
	if tailIgnoreCase {
		q.Set("ignore_case", "true")
	}
	if tailService != "" {
		q.Set("service", tailService)
	}

	reqURL := fmt.Sprintf("http://%s/v1/tail?%s", httpAddr, q.Encode())
	resp, err := http.Get(reqURL)
	if err != nil {
		return withExitCode(ExitNotConnected, fmt.Errorf("connecting to %s: %w", httpAddr, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return withExitCode(ExitQueryError, fmt.Errorf("tail request failed: %s", resp.Status))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data: "):
			fmt.Println(strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, "event: error"):
			fmt.Fprintln(cmd.ErrOrStderr(), "tail: subscriber lagged, stream closed")
			return withExitCode(ExitQueryError, fmt.Errorf("tail subscriber lagged"))
		}
	}
	return scanner.Err()
}
