package ingest

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/otlp"
	"github.com/runmat-org/otell/internal/pipeline"
	"github.com/runmat-org/otell/pkg/logger"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
)

// HTTPConfig configures the OTLP HTTP receiver.
type HTTPConfig struct {
	Addr           string
	EnqueueTimeout time.Duration
}

// HTTPReceiver implements OTLP's HTTP transport: POST /v1/{logs,traces,metrics}
// with protobuf-first, JSON-fallback body parsing.
type HTTPReceiver struct {
	pipeline  *pipeline.Pipeline
	cfg       HTTPConfig
	server    *http.Server
	forwarder *Forwarder
}

// NewHTTPReceiver builds an HTTP receiver bound to an already-running pipeline.
func NewHTTPReceiver(cfg HTTPConfig, p *pipeline.Pipeline) *HTTPReceiver {
	r := &HTTPReceiver{pipeline: p, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/logs", r.handleLogs)
	mux.HandleFunc("/v1/traces", r.handleTraces)
	mux.HandleFunc("/v1/metrics", r.handleMetrics)
	mux.HandleFunc("/health", r.handleHealth)

	r.server = &http.Server{Addr: cfg.Addr, Handler: mux}
	return r
}

// WithForwarder tees every successfully-parsed request body to fwd
// before decoding into the pipeline, per spec.md §6's
// OTELL_FORWARD_OTLP_* tee. Returns r for chaining at construction time.
func (r *HTTPReceiver) WithForwarder(fwd *Forwarder) *HTTPReceiver {
	r.forwarder = fwd
	return r
}

// Start listens and serves until the server is shut down.
func (r *HTTPReceiver) Start() error {
	lg := logger.Component("ingest.http")
	lg.Info().Str("addr", r.cfg.Addr).Msg("listening")
	err := r.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (r *HTTPReceiver) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

func (r *HTTPReceiver) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (r *HTTPReceiver) handleLogs(w http.ResponseWriter, req *http.Request) {
	var exportReq collogspb.ExportLogsServiceRequest
	body, ok := decodeOTLPBody(w, req, &exportReq)
	if !ok {
		return
	}
	if r.forwarder != nil {
		r.forwarder.Tee("/v1/logs", body)
	}

	logs, decodeErrs := otlp.DecodeLogs(&exportReq)
	if err := r.pipeline.SubmitLogs(req.Context(), logs, r.cfg.EnqueueTimeout); err != nil {
		writeCapacityError(w, err)
		return
	}

	resp := &collogspb.ExportLogsServiceResponse{
		PartialSuccess: &collogspb.ExportLogsPartialSuccess{RejectedLogRecords: rejectedCount(decodeErrs)},
	}
	writeOTLPResponse(w, req, resp)
}

func (r *HTTPReceiver) handleTraces(w http.ResponseWriter, req *http.Request) {
	var exportReq coltracepb.ExportTraceServiceRequest
	body, ok := decodeOTLPBody(w, req, &exportReq)
	if !ok {
		return
	}
	if r.forwarder != nil {
		r.forwarder.Tee("/v1/traces", body)
	}

	spans, decodeErrs := otlp.DecodeTraces(&exportReq)
	if err := r.pipeline.SubmitSpans(req.Context(), spans, r.cfg.EnqueueTimeout); err != nil {
		writeCapacityError(w, err)
		return
	}

	resp := &coltracepb.ExportTraceServiceResponse{
		PartialSuccess: &coltracepb.ExportTracePartialSuccess{RejectedSpans: rejectedCount(decodeErrs)},
	}
	writeOTLPResponse(w, req, resp)
}

func (r *HTTPReceiver) handleMetrics(w http.ResponseWriter, req *http.Request) {
	var exportReq colmetricspb.ExportMetricsServiceRequest
	body, ok := decodeOTLPBody(w, req, &exportReq)
	if !ok {
		return
	}
	if r.forwarder != nil {
		r.forwarder.Tee("/v1/metrics", body)
	}

	points, decodeErrs := otlp.DecodeMetrics(&exportReq)
	if err := r.pipeline.SubmitMetrics(req.Context(), points, r.cfg.EnqueueTimeout); err != nil {
		writeCapacityError(w, err)
		return
	}

	resp := &colmetricspb.ExportMetricsServiceResponse{
		PartialSuccess: &colmetricspb.ExportMetricsPartialSuccess{RejectedDataPoints: rejectedCount(decodeErrs)},
	}
	writeOTLPResponse(w, req, resp)
}

// decodeOTLPBody reads the (possibly gzip-compressed) request body and
// unmarshals it as protobuf, falling back to JSON OTLP per spec.md §4.4.
// Returns the decompressed raw body (for the optional forward tee)
// and false if parsing failed, in which case the error response has
// already been written.
func decodeOTLPBody(w http.ResponseWriter, req *http.Request, msg proto.Message) ([]byte, bool) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	reader := io.ReadCloser(req.Body)
	if req.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(req.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("decompressing body: %v", err), http.StatusBadRequest)
			return nil, false
		}
		defer gz.Close()
		reader = gz
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		http.Error(w, fmt.Sprintf("reading body: %v", err), http.StatusBadRequest)
		return nil, false
	}
	defer req.Body.Close()

	if req.Header.Get("Content-Type") == "application/json" {
		if err := protojson.Unmarshal(body, msg); err != nil {
			http.Error(w, fmt.Sprintf("parsing json body: %v", err), http.StatusBadRequest)
			return nil, false
		}
		return body, true
	}

	if err := proto.Unmarshal(body, msg); err != nil {
		unmarshaler := protojson.UnmarshalOptions{DiscardUnknown: true}
		if jsonErr := unmarshaler.Unmarshal(body, msg); jsonErr != nil {
			http.Error(w, fmt.Sprintf("parsing body: protobuf error: %v, json error: %v", err, jsonErr), http.StatusBadRequest)
			return nil, false
		}
	}
	return body, true
}

// writeOTLPResponse encodes the OTLP response envelope in the same
// encoding the request arrived in.
func writeOTLPResponse(w http.ResponseWriter, req *http.Request, resp proto.Message) {
	if req.Header.Get("Content-Type") == "application/json" {
		body, err := protojson.Marshal(resp)
		if err != nil {
			http.Error(w, fmt.Sprintf("marshaling response: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(body)
		return
	}

	body, err := proto.Marshal(resp)
	if err != nil {
		http.Error(w, fmt.Sprintf("marshaling response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func writeCapacityError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrCapacity) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if errors.Is(err, pipeline.ErrClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
