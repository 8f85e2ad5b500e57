package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runmat-org/otell/internal/config"
	"github.com/runmat-org/otell/internal/ingest"
	"github.com/runmat-org/otell/internal/pipeline"
	"github.com/runmat-org/otell/internal/query"
	"github.com/runmat-org/otell/internal/store"
	"github.com/runmat-org/otell/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the OTLP ingest and query daemon",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	config.BindFlags(runCmd, v)
}

// runRun wires every long-lived component together and blocks until a
// shutdown signal arrives, grounded on the teacher's cmd/server/main.go
// composition root: one goroutine per listener feeding a shared
// errChan, a signal channel racing against it in a select, and an
// ordered Shutdown pass with a bounded context on SIGINT/SIGTERM —
// generalized from the teacher's 3 servers to otell's ingest (gRPC,
// HTTP), query (UDS, TCP, HTTP) and retention-loop set.
func runRun(cmd *cobra.Command, args []string) error {
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return withExitCode(ExitUsage, fmt.Errorf("logger: %w", err))
	}
	log := logger.Component("cli.run")

	st, err := store.New(cfg.StoreConfig())
	if err != nil {
		return withExitCode(ExitUsage, fmt.Errorf("opening store: %w", err))
	}
	defer st.Close()

	broker := query.NewBroker()

	pcfg := cfg.PipelineConfig()
	pcfg.OnLogsCommitted = broker.Publish
	pipe := pipeline.New(pcfg, st, st, st)

	grpcRecv := ingest.NewGRPCReceiver(cfg.GRPCConfig(), pipe)
	httpRecv := ingest.NewHTTPReceiver(cfg.HTTPIngestConfig(), pipe)

	var forwarder *ingest.Forwarder
	if cfg.ForwardEndpoint != "" {
		forwarder = ingest.NewForwarder(cfg.ForwardConfig())
		httpRecv.WithForwarder(forwarder)
		log.Info().Str("endpoint", cfg.ForwardEndpoint).Msg("forwarding OTLP upstream")
	}

	dispatcher := query.New(st)

	udsSrv, err := query.NewUDSServer(cfg.QueryUDSPath, dispatcher)
	if err != nil {
		return withExitCode(ExitUsage, fmt.Errorf("binding query UDS: %w", err))
	}
	tcpSrv, err := query.NewTCPServer(cfg.QueryTCPAddr, dispatcher)
	if err != nil {
		return withExitCode(ExitUsage, fmt.Errorf("binding query TCP: %w", err))
	}
	httpQuerySrv := query.NewHTTPServer(cfg.QueryHTTPAddr, dispatcher, broker)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go st.StartRetentionLoop(ctx, cfg.RetentionConfig(), func() int64 { return time.Now().UnixNano() })

	errCh := make(chan error, 5)
	go func() { errCh <- grpcRecv.Start() }()
	go func() { errCh <- httpRecv.Start() }()
	go func() { errCh <- udsSrv.Start() }()
	go func() { errCh <- tcpSrv.Start() }()
	go func() { errCh <- httpQuerySrv.Start() }()

	log.Info().
		Str("otlp_grpc", cfg.OTLPGRPCAddr).
		Str("otlp_http", cfg.OTLPHTTPAddr).
		Str("query_uds", cfg.QueryUDSPath).
		Str("query_tcp", cfg.QueryTCPAddr).
		Str("query_http", cfg.QueryHTTPAddr).
		Str("db_path", cfg.DBPath).
		Msg("otell daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("listener failed")
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	_ = grpcRecv.Shutdown(shutdownCtx)
	_ = httpRecv.Shutdown(shutdownCtx)
	_ = udsSrv.Shutdown(shutdownCtx)
	_ = tcpSrv.Shutdown(shutdownCtx)
	_ = httpQuerySrv.Shutdown(shutdownCtx)
	if forwarder != nil {
		forwarder.Close()
	}
	pipe.Close()

	log.Info().Msg("shutdown complete")
	return nil
}
