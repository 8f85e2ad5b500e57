// Package ingest implements the OTLP gRPC and HTTP receivers that
// decode inbound export requests and push the results into the write
// pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/otlp"
	"github.com/runmat-org/otell/internal/pipeline"
	"github.com/runmat-org/otell/pkg/logger"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
)

// GRPCConfig configures the OTLP gRPC receiver.
type GRPCConfig struct {
	Addr           string
	EnqueueTimeout time.Duration
}

// GRPCReceiver implements OTLP's LogsService, TraceService and
// MetricsService Export RPCs over one shared pipeline.
type GRPCReceiver struct {
	colmetricspb.UnimplementedMetricsServiceServer

	pipeline *pipeline.Pipeline
	cfg      GRPCConfig
	server   *grpc.Server
}

// NewGRPCReceiver builds a receiver bound to an already-running pipeline.
func NewGRPCReceiver(cfg GRPCConfig, p *pipeline.Pipeline) *GRPCReceiver {
	return &GRPCReceiver{pipeline: p, cfg: cfg}
}

// Start listens and serves until the listener fails or Shutdown is called.
func (r *GRPCReceiver) Start() error {
	lis, err := net.Listen("tcp", r.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.cfg.Addr, err)
	}

	r.server = grpc.NewServer()
	colmetricspb.RegisterMetricsServiceServer(r.server, r)
	coltracepb.RegisterTraceServiceServer(r.server, &traceService{GRPCReceiver: r})
	collogspb.RegisterLogsServiceServer(r.server, &logsService{GRPCReceiver: r})
	reflection.Register(r.server)

	lg := logger.Component("ingest.grpc")
	lg.Info().Str("addr", r.cfg.Addr).Msg("listening")
	return r.server.Serve(lis)
}

// Shutdown gracefully stops the gRPC server.
func (r *GRPCReceiver) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	stopped := make(chan struct{})
	go func() {
		r.server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		r.server.Stop()
		return ctx.Err()
	}
}

// Export implements MetricsService.
func (r *GRPCReceiver) Export(ctx context.Context, req *colmetricspb.ExportMetricsServiceRequest) (*colmetricspb.ExportMetricsServiceResponse, error) {
	points, decodeErrs := otlp.DecodeMetrics(req)
	if err := r.pipeline.SubmitMetrics(ctx, points, r.cfg.EnqueueTimeout); err != nil {
		return nil, capacityToStatus(err)
	}
	return &colmetricspb.ExportMetricsServiceResponse{
		PartialSuccess: &colmetricspb.ExportMetricsPartialSuccess{
			RejectedDataPoints: rejectedCount(decodeErrs),
		},
	}, nil
}

type traceService struct {
	coltracepb.UnimplementedTraceServiceServer
	*GRPCReceiver
}

func (s *traceService) Export(ctx context.Context, req *coltracepb.ExportTraceServiceRequest) (*coltracepb.ExportTraceServiceResponse, error) {
	spans, decodeErrs := otlp.DecodeTraces(req)
	if err := s.pipeline.SubmitSpans(ctx, spans, s.cfg.EnqueueTimeout); err != nil {
		return nil, capacityToStatus(err)
	}
	return &coltracepb.ExportTraceServiceResponse{
		PartialSuccess: &coltracepb.ExportTracePartialSuccess{
			RejectedSpans: rejectedCount(decodeErrs),
		},
	}, nil
}

type logsService struct {
	collogspb.UnimplementedLogsServiceServer
	*GRPCReceiver
}

func (s *logsService) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	logs, decodeErrs := otlp.DecodeLogs(req)
	if err := s.pipeline.SubmitLogs(ctx, logs, s.cfg.EnqueueTimeout); err != nil {
		return nil, capacityToStatus(err)
	}
	return &collogspb.ExportLogsServiceResponse{
		PartialSuccess: &collogspb.ExportLogsPartialSuccess{
			RejectedLogRecords: rejectedCount(decodeErrs),
		},
	}, nil
}

func rejectedCount(errs []model.DecodeError) int64 {
	var total int64
	for _, e := range errs {
		total += int64(e.Count)
	}
	return total
}

// capacityToStatus maps a full write pipeline into RESOURCE_EXHAUSTED,
// the retryable gRPC code callers are expected to back off on, grounded
// on carverauto-serviceradar's poller retry classification.
func capacityToStatus(err error) error {
	if errors.Is(err, model.ErrCapacity) {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	if errors.Is(err, pipeline.ErrClosed) {
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
