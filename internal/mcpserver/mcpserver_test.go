package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/query"
)

func fakeDispatch(t *testing.T) (DispatchFunc, *int) {
	t.Helper()
	calls := 0
	fn := func(_ context.Context, req query.ApiRequest) query.ApiResponse {
		calls++
		switch req.Op {
		case query.OpStatus:
			return query.ApiResponse{Op: req.Op, Status: &model.StatusResponse{
				DBPath: "/tmp/otell.duckdb", LogCount: 3,
			}}
		case query.OpSearch:
			if req.Search == nil || req.Search.Pattern == "" {
				return query.ApiResponse{Op: req.Op, Error: "pattern is required"}
			}
			return query.ApiResponse{Op: req.Op, Search: &model.SearchResponse{
				Records: []model.SearchHit{},
				Handle:  "h123",
			}}
		default:
			return query.ApiResponse{Op: req.Op, Error: "unsupported in test"}
		}
	}
	return fn, &calls
}

func TestServeLegacyCallDispatchesRegisteredTool(t *testing.T) {
	dispatch, calls := fakeDispatch(t)
	s := newServer(dispatch)

	in := strings.NewReader(`{"tool":"otell_status","args":{}}` + "\n")
	var out bytes.Buffer
	if err := s.serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	if *calls != 1 {
		t.Fatalf("dispatch called %d times, want 1", *calls)
	}

	var resp legacyResult
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response %q: %v", out.String(), err)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Result == nil {
		t.Fatal("expected a result payload")
	}
}

func TestServeLegacyCallUnknownTool(t *testing.T) {
	dispatch, _ := fakeDispatch(t)
	s := newServer(dispatch)

	in := strings.NewReader(`{"tool":"otell_bogus","args":{}}` + "\n")
	var out bytes.Buffer
	if err := s.serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var resp legacyResult
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected an error for an unknown tool")
	}
}

func TestServeLegacyCallPassesArgsThrough(t *testing.T) {
	dispatch, _ := fakeDispatch(t)
	s := newServer(dispatch)

	in := strings.NewReader(`{"tool":"otell_search","args":{"pattern":"boot failure"}}` + "\n")
	var out bytes.Buffer
	if err := s.serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var resp legacyResult
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
}

func TestServeLegacyCallMissingRequiredArg(t *testing.T) {
	dispatch, _ := fakeDispatch(t)
	s := newServer(dispatch)

	in := strings.NewReader(`{"tool":"otell_search","args":{}}` + "\n")
	var out bytes.Buffer
	if err := s.serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}

	var resp legacyResult
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected an error when pattern is missing")
	}
}

func TestParseLegacyCallRejectsJSONRPCEnvelope(t *testing.T) {
	_, ok := parseLegacyCall(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`)
	if ok {
		t.Fatal("a jsonrpc envelope must not be treated as a legacy call")
	}
}

func TestParseLegacyCallRejectsMissingTool(t *testing.T) {
	_, ok := parseLegacyCall(`{"args":{}}`)
	if ok {
		t.Fatal("a line without a tool member must not be treated as a legacy call")
	}
}

func TestParseLegacyCallAcceptsLegacyShape(t *testing.T) {
	call, ok := parseLegacyCall(`{"tool":"otell_status","args":{"service":"api"}}`)
	if !ok {
		t.Fatal("expected legacy call to be recognized")
	}
	if call.Tool != "otell_status" {
		t.Errorf("Tool = %q, want otell_status", call.Tool)
	}
	if call.Args["service"] != "api" {
		t.Errorf("Args[service] = %v, want api", call.Args["service"])
	}
}

func TestNewRemoteAdaptsContextlessDispatch(t *testing.T) {
	called := false
	s := NewRemote(func(req query.ApiRequest) query.ApiResponse {
		called = true
		return query.ApiResponse{Op: req.Op, Status: &model.StatusResponse{}}
	})

	in := strings.NewReader(`{"tool":"otell_status","args":{}}` + "\n")
	var out bytes.Buffer
	if err := s.serve(context.Background(), in, &out); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if !called {
		t.Fatal("expected the remote dispatch function to be invoked")
	}
}
