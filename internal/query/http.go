package query

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/pkg/logger"
)

// HTTPServer exposes the dispatcher as JSON routes plus the SSE tail
// stream, grounded on the teacher's internal/api.Server chi-router
// construction (same middleware stack, same route-registration
// shape) generalized from the teacher's storage.Storage surface onto
// the Dispatcher.
type HTTPServer struct {
	addr   string
	server *http.Server
	broker *Broker
}

// NewHTTPServer builds the query HTTP server. broker may be nil, in
// which case /v1/tail answers 503 (no logs writer wired it up).
func NewHTTPServer(addr string, d *Dispatcher, broker *Broker) *HTTPServer {
	s := &HTTPServer{addr: addr, broker: broker}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Route("/v1", func(r chi.Router) {
		r.Post("/search", dispatchHandler(d, OpSearch, decodeSearch))
		r.Post("/traces", dispatchHandler(d, OpTraces, decodeTraces))
		r.Post("/trace", dispatchHandler(d, OpTrace, decodeTrace))
		r.Get("/trace/{trace_id}", s.handleGetTrace(d))
		r.Post("/span", dispatchHandler(d, OpSpan, decodeSpan))
		r.Post("/metrics", dispatchHandler(d, OpMetrics, decodeMetrics))
		r.Post("/metrics/list", dispatchHandler(d, OpMetricsList, decodeMetricsList))
		r.Get("/status", s.handleStatus(d))
		r.Get("/tail", s.handleTail)
		r.Get("/tail/ws", s.handleTailWS)
	})

	s.server = &http.Server{Addr: addr, Handler: router}
	return s
}

func (s *HTTPServer) Start() error {
	lg := logger.Component("query.http")
	lg.Info().Str("addr", s.addr).Msg("listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// dispatchHandler builds an http.HandlerFunc that decodes the request
// body into req via decode, dispatches op, and writes the JSON
// response envelope.
func dispatchHandler(d *Dispatcher, op Op, decode func(*http.Request) (ApiRequest, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ApiResponse{Op: op, Error: err.Error()})
			return
		}
		req.Op = op
		resp := d.Dispatch(r.Context(), req)
		writeJSON(w, statusFor(resp), resp)
	}
}

func (s *HTTPServer) handleGetTrace(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := ApiRequest{Op: OpTrace, Trace: &model.TraceRequest{
			TraceID: chi.URLParam(r, "trace_id"),
			Logs:    model.LogsBounded,
		}}
		if policy := r.URL.Query().Get("logs"); policy != "" {
			req.Trace.Logs = parseLogsPolicy(policy)
		}
		if root := r.URL.Query().Get("root"); root != "" {
			req.Trace.Root = root
		}
		resp := d.Dispatch(r.Context(), req)
		writeJSON(w, statusFor(resp), resp)
	}
}

func (s *HTTPServer) handleStatus(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := d.Dispatch(r.Context(), ApiRequest{Op: OpStatus})
		writeJSON(w, statusFor(resp), resp)
	}
}

func statusFor(resp ApiResponse) int {
	if resp.Error == "" {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func decodeSearch(r *http.Request) (ApiRequest, error) {
	var req model.SearchRequest
	if err := decodeBody(r, &req); err != nil {
		return ApiRequest{}, err
	}
	return ApiRequest{Search: &req}, nil
}

func decodeTraces(r *http.Request) (ApiRequest, error) {
	var req model.TracesRequest
	if err := decodeBody(r, &req); err != nil {
		return ApiRequest{}, err
	}
	return ApiRequest{Traces: &req}, nil
}

func decodeTrace(r *http.Request) (ApiRequest, error) {
	var req model.TraceRequest
	if err := decodeBody(r, &req); err != nil {
		return ApiRequest{}, err
	}
	return ApiRequest{Trace: &req}, nil
}

func decodeSpan(r *http.Request) (ApiRequest, error) {
	var req model.SpanRequest
	if err := decodeBody(r, &req); err != nil {
		return ApiRequest{}, err
	}
	return ApiRequest{Span: &req}, nil
}

func decodeMetrics(r *http.Request) (ApiRequest, error) {
	var req model.MetricsRequest
	if err := decodeBody(r, &req); err != nil {
		return ApiRequest{}, err
	}
	return ApiRequest{Metrics: &req}, nil
}

func decodeMetricsList(r *http.Request) (ApiRequest, error) {
	var req model.MetricsListRequest
	if err := decodeBody(r, &req); err != nil {
		return ApiRequest{}, err
	}
	return ApiRequest{MetricsList: &req}, nil
}

func parseLogsPolicy(s string) model.LogsPolicy {
	switch s {
	case "all":
		return model.LogsAll
	case "none":
		return model.LogsNone
	default:
		return model.LogsBounded
	}
}
