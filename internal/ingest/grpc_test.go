package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/pipeline"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
)

func TestGRPCLogsExportReportsRejectedRecords(t *testing.T) {
	fw := &fakeWriter{}
	cfg := pipeline.DefaultConfig()
	cfg.WriteFlushMs = 10
	p := pipeline.New(cfg, fw, fw, fw)
	defer p.Close()

	recv := NewGRPCReceiver(GRPCConfig{EnqueueTimeout: time.Second}, p)
	ls := &logsService{GRPCReceiver: recv}

	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			ScopeLogs: []*logspb.ScopeLogs{{
				LogRecords: []*logspb.LogRecord{
					{TimeUnixNano: 1000, Body: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "ok"}}},
					{TimeUnixNano: 0}, // rejected: zero timestamp
				},
			}},
		}},
	}

	resp, err := ls.Export(context.Background(), req)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if resp.PartialSuccess.RejectedLogRecords != 1 {
		t.Errorf("RejectedLogRecords = %d, want 1", resp.PartialSuccess.RejectedLogRecords)
	}

	time.Sleep(50 * time.Millisecond)
	logCount, _, _ := fw.count()
	if logCount != 1 {
		t.Errorf("logCount = %d, want 1", logCount)
	}
}

func TestCapacityToStatusMapsResourceExhausted(t *testing.T) {
	err := capacityToStatus(model.ErrCapacity)
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("capacityToStatus did not return a grpc status error")
	}
	if st.Code() != codes.ResourceExhausted {
		t.Errorf("code = %v, want ResourceExhausted", st.Code())
	}
}

func TestCapacityToStatusMapsClosedToUnavailable(t *testing.T) {
	err := capacityToStatus(pipeline.ErrClosed)
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("capacityToStatus did not return a grpc status error")
	}
	if st.Code() != codes.Unavailable {
		t.Errorf("code = %v, want Unavailable", st.Code())
	}
}

func TestCapacityToStatusMapsOtherErrorsToInternal(t *testing.T) {
	err := capacityToStatus(errors.New("boom"))
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("capacityToStatus did not return a grpc status error")
	}
	if st.Code() != codes.Internal {
		t.Errorf("code = %v, want Internal", st.Code())
	}
}
