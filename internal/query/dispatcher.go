// Package query implements the shared dispatcher the spec calls for
// in §4.5: a pure function from a tagged request envelope to a
// response envelope over the store, reused by the query frontends
// (UDS, TCP, HTTP, MCP; the tail streams read the Broker instead) the way the teacher's
// internal/api.Server reuses one storage.Storage interface.
package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/store"
)

// Op names one dispatcher operation; it doubles as the JSON-RPC /
// MCP tool-name suffix and as the discriminator embedded in a handle.
type Op string

const (
	OpSearch        Op = "search"
	OpTraces        Op = "traces"
	OpTrace         Op = "trace"
	OpSpan          Op = "span"
	OpMetrics       Op = "metrics"
	OpMetricsList   Op = "metrics_list"
	OpStatus        Op = "status"
	OpResolveHandle Op = "resolve_handle"
)

// ApiRequest is the tagged union accepted by Dispatch; exactly the
// field matching Op should be populated.
type ApiRequest struct {
	Op          Op                       `json:"op"`
	Search      *model.SearchRequest      `json:"search,omitempty"`
	Traces      *model.TracesRequest      `json:"traces,omitempty"`
	Trace       *model.TraceRequest       `json:"trace,omitempty"`
	Span        *model.SpanRequest        `json:"span,omitempty"`
	Metrics     *model.MetricsRequest     `json:"metrics,omitempty"`
	MetricsList *model.MetricsListRequest `json:"metrics_list,omitempty"`
	Handle      string                    `json:"handle,omitempty"`
}

// ApiResponse is the tagged union returned by Dispatch.
type ApiResponse struct {
	Op          Op                         `json:"op"`
	Search      *model.SearchResponse      `json:"search,omitempty"`
	Traces      *model.TracesResponse      `json:"traces,omitempty"`
	Trace       *model.TraceResponse       `json:"trace,omitempty"`
	Span        *model.SpanResponse        `json:"span,omitempty"`
	Metrics     *model.MetricsResponse     `json:"metrics,omitempty"`
	MetricsList *model.MetricsListResponse `json:"metrics_list,omitempty"`
	Status      *model.StatusResponse      `json:"status,omitempty"`
	Error       string                     `json:"error,omitempty"`
}

// Dispatcher wires ApiRequest/ApiResponse onto a *store.Store. It has
// no other state, matching spec.md's "pure function" framing.
type Dispatcher struct {
	store *store.Store
}

func New(s *store.Store) *Dispatcher {
	return &Dispatcher{store: s}
}

// Dispatch routes req to the matching store operation and always
// returns a response carrying the same Op — errors surface in
// ApiResponse.Error rather than as a Go error, per spec.md §7's "error
// taxonomy stays local to the request-scoped envelope" rule.
func (d *Dispatcher) Dispatch(ctx context.Context, req ApiRequest) ApiResponse {
	switch req.Op {
	case OpSearch:
		if req.Search == nil {
			return errResp(req.Op, "search request missing")
		}
		resp, err := d.store.Search(ctx, *req.Search)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		resp.Handle = envelopeHandle(req.Op, req)
		return ApiResponse{Op: req.Op, Search: &resp}

	case OpTraces:
		if req.Traces == nil {
			return errResp(req.Op, "traces request missing")
		}
		resp, err := d.store.Traces(ctx, *req.Traces)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		resp.Handle = envelopeHandle(req.Op, req)
		return ApiResponse{Op: req.Op, Traces: &resp}

	case OpTrace:
		if req.Trace == nil {
			return errResp(req.Op, "trace request missing")
		}
		resp, err := d.store.Trace(ctx, *req.Trace)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		resp.Handle = envelopeHandle(req.Op, req)
		return ApiResponse{Op: req.Op, Trace: &resp}

	case OpSpan:
		if req.Span == nil {
			return errResp(req.Op, "span request missing")
		}
		resp, err := d.store.Span(ctx, *req.Span)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		resp.Handle = envelopeHandle(req.Op, req)
		return ApiResponse{Op: req.Op, Span: &resp}

	case OpMetrics:
		if req.Metrics == nil {
			return errResp(req.Op, "metrics request missing")
		}
		resp, err := d.store.Metrics(ctx, *req.Metrics)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		resp.Handle = envelopeHandle(req.Op, req)
		return ApiResponse{Op: req.Op, Metrics: &resp}

	case OpMetricsList:
		if req.MetricsList == nil {
			return errResp(req.Op, "metrics_list request missing")
		}
		resp, err := d.store.MetricsList(ctx, *req.MetricsList)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		resp.Handle = envelopeHandle(req.Op, req)
		return ApiResponse{Op: req.Op, MetricsList: &resp}

	case OpStatus:
		resp, err := d.store.Status(ctx)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		return ApiResponse{Op: req.Op, Status: &resp}

	case OpResolveHandle:
		resolved, err := ResolveHandle(req.Handle)
		if err != nil {
			return errResp(req.Op, err.Error())
		}
		return d.Dispatch(ctx, resolved)

	default:
		return errResp(req.Op, fmt.Sprintf("unknown op %q", req.Op))
	}
}

func errResp(op Op, msg string) ApiResponse {
	return ApiResponse{Op: op, Error: msg}
}

// envelopeHandle canonicalizes the whole tagged request (Op included)
// so ResolveHandle can recover which store method to re-run — a plain
// model.Handle(req.Search) alone would lose that discriminator.
func envelopeHandle(op Op, req ApiRequest) string {
	tagged := req
	tagged.Op = op
	h, err := model.Handle(tagged)
	if err != nil {
		return ""
	}
	return h
}

// ResolveHandle decodes a handle produced by envelopeHandle back into
// the ApiRequest that produced it, per spec.md §4.5.
func ResolveHandle(h string) (ApiRequest, error) {
	raw, err := model.ResolveHandle(h)
	if err != nil {
		return ApiRequest{}, fmt.Errorf("decoding handle: %w", err)
	}
	var req ApiRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return ApiRequest{}, fmt.Errorf("parsing handle payload: %w", err)
	}
	return req, nil
}
