// Package cli implements otell's command tree: `run` starts the
// ingest/query daemon in-process, every other subcommand is a thin
// client dialing a running daemon's UDS/TCP/HTTP query frontend and
// rendering its response. Grounded on atikulmunna-loom's
// internal/cmd/root.go cobra bootstrap, generalized from loom's single
// "watch" verb to otell's run/query command split, with
// charmbracelet/lipgloss for the human-readable render mode the way
// loom's internal/output renderer uses it for colorized text.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/runmat-org/otell/internal/config"
)

// Exit codes per spec.md §6.
const (
	ExitSuccess      = 0
	ExitUsage        = 2
	ExitNotConnected = 3
	ExitQueryError   = 4
)

var (
	cfgFile    string
	jsonOutput bool
	udsPath    string
	addr       string

	v   = viper.New()
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:           "otell",
	Short:         "otell — local-first OpenTelemetry ingest and query utility",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits the process with the
// matching exit code on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "otell: "+err.Error())
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $XDG_CONFIG_HOME/otell/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "render output as JSON instead of a table")
	rootCmd.PersistentFlags().StringVar(&udsPath, "uds", "", "query Unix domain socket path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "query TCP host:port (overrides config and --uds)")

	rootCmd.AddCommand(runCmd, searchCmd, tracesCmd, traceCmd, spanCmd, metricsCmd,
		statusCmd, handleCmd, introCmd, tailCmd, mcpCmd)
}

func initConfig() {
	if cfgFile != "" {
		_ = os.Setenv("OTELL_CONFIG", cfgFile)
	}

	loaded, err := config.Load(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, "otell: config: "+err.Error())
		os.Exit(ExitUsage)
	}
	cfg = loaded

	if udsPath != "" {
		cfg.QueryUDSPath = udsPath
	}
	if addr != "" {
		cfg.QueryTCPAddr = addr
	}
}

// exitError lets a subcommand's RunE carry a specific exit status
// through cobra's plain error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCodeFor(err error) int {
	var ee *exitError
	if as, ok := err.(*exitError); ok {
		ee = as
		return ee.code
	}
	return ExitUsage
}
