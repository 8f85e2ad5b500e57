// Package mcpserver exposes the query dispatcher as Model Context
// Protocol tools over stdio, grounded on ashita-ai-akashi's
// internal/mcp/mcp.go tool-registration idiom (mcpserver.NewMCPServer
// + AddTool(mcplib.NewTool(...), handler)) adapted to otell's one
// dispatcher Op per tool instead of a service-method-per-tool layout.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpgoserver "github.com/mark3labs/mcp-go/server"

	"github.com/runmat-org/otell/internal/model"
	"github.com/runmat-org/otell/internal/query"
)

// DispatchFunc routes one ApiRequest to its ApiResponse — satisfied
// directly by (*query.Dispatcher).Dispatch for an in-process server,
// or by a thin wire-protocol shim for a client process that reaches
// the dispatcher over UDS/TCP instead.
type DispatchFunc func(context.Context, query.ApiRequest) query.ApiResponse

// Server wraps the MCP server bound to a DispatchFunc.
type Server struct {
	mcpServer *mcpgoserver.MCPServer
	dispatch  DispatchFunc
	tools     map[string]toolHandlerFunc
}

// legacyCall is the pre-JSON-RPC tool invocation form spec.md §4.5
// accepts ahead of the JSON-RPC envelope: {"tool": "otell_search",
// "args": {...}}. It carries no "jsonrpc" member, which is how
// parseLegacyCall tells it apart from a real JSON-RPC request.
type legacyCall struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

type legacyResult struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// toolHandlerFunc matches mcp-go's CallToolRequest handler signature;
// named locally so the legacy dispatch table doesn't depend on an
// exported alias from mcplib.
type toolHandlerFunc func(context.Context, mcplib.CallToolRequest) (*mcplib.CallToolResult, error)

// New builds a Server with one tool registered per dispatcher Op,
// bound directly to an in-process *query.Dispatcher.
func New(d *query.Dispatcher) *Server {
	return newServer(d.Dispatch)
}

// NewRemote builds a Server whose tools call fn instead of an
// in-process dispatcher — used by the `otell mcp` CLI command, which
// reaches a running daemon's query frontend over the wire rather than
// holding its own *store.Store.
func NewRemote(fn func(query.ApiRequest) query.ApiResponse) *Server {
	return newServer(func(_ context.Context, req query.ApiRequest) query.ApiResponse {
		return fn(req)
	})
}

func newServer(dispatch DispatchFunc) *Server {
	s := &Server{dispatch: dispatch, tools: make(map[string]toolHandlerFunc)}
	s.mcpServer = mcpgoserver.NewMCPServer(
		"otell",
		"0.1.0",
		mcpgoserver.WithToolCapabilities(false),
	)
	s.registerTools()
	return s
}

// addTool registers handler both with the mcp-go server (for the real
// JSON-RPC tools/call path) and in s.tools (for the legacy {"tool":
// ..., "args": ...} JSONL form), so the two entry points never drift
// apart.
func (s *Server) addTool(tool mcplib.Tool, handler toolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools[tool.Name] = handler
}

// ServeStdio blocks reading newline-delimited requests from os.Stdin
// until it is exhausted, writing one JSON response line per request
// line to os.Stdout; ctx is passed to each handled request and is not
// checked between lines. Each line is first checked
// against the legacy {"tool": ..., "args": ...} shape spec.md §4.5
// accepts ahead of the JSON-RPC envelope; anything else is handed to
// the mcp-go server's message handler, the way a real MCP client
// speaks tools/list and tools/call.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.serve(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if call, ok := parseLegacyCall(line); ok {
			s.handleLegacyCall(ctx, call, w)
			continue
		}

		resp := s.mcpServer.HandleMessage(ctx, []byte(line))
		if resp == nil {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// parseLegacyCall reports whether line is the legacy {"tool": ...,
// "args": ...} form rather than a JSON-RPC envelope — distinguished by
// the absence of a "jsonrpc" member and the presence of "tool".
func parseLegacyCall(line string) (legacyCall, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		return legacyCall{}, false
	}
	if _, isJSONRPC := probe["jsonrpc"]; isJSONRPC {
		return legacyCall{}, false
	}
	if _, hasTool := probe["tool"]; !hasTool {
		return legacyCall{}, false
	}
	var call legacyCall
	if err := json.Unmarshal([]byte(line), &call); err != nil {
		return legacyCall{}, false
	}
	return call, true
}

func (s *Server) handleLegacyCall(ctx context.Context, call legacyCall, w io.Writer) {
	write := func(res legacyResult) {
		data, err := json.Marshal(res)
		if err != nil {
			return
		}
		_, _ = w.Write(append(data, '\n'))
	}

	handler, ok := s.tools[call.Tool]
	if !ok {
		write(legacyResult{Error: fmt.Sprintf("unknown tool: %s", call.Tool)})
		return
	}

	argsJSON, err := json.Marshal(call.Args)
	if err != nil {
		write(legacyResult{Error: fmt.Sprintf("marshal args: %v", err)})
		return
	}
	req := mcplib.CallToolRequest{}
	req.Params.Name = call.Tool
	if err := json.Unmarshal(argsJSON, &req.Params.Arguments); err != nil {
		write(legacyResult{Error: fmt.Sprintf("decode args: %v", err)})
		return
	}

	result, err := handler(ctx, req)
	if err != nil {
		write(legacyResult{Error: err.Error()})
		return
	}
	if result.IsError {
		write(legacyResult{Error: textOf(result)})
		return
	}
	write(legacyResult{Result: json.RawMessage(textOf(result))})
}

func textOf(result *mcplib.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func (s *Server) registerTools() {
	s.addTool(
		mcplib.NewTool("otell_search",
			mcplib.WithDescription("Search logs by substring or regex pattern, with optional service/time/severity/attribute filters"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("pattern", mcplib.Description("Substring or regex to match against log body and attrs"), mcplib.Required()),
			mcplib.WithBoolean("fixed", mcplib.Description("Treat pattern as a literal substring instead of a regex")),
			mcplib.WithBoolean("ignore_case", mcplib.Description("Case-insensitive match")),
			mcplib.WithString("service", mcplib.Description("Filter to one service name")),
			mcplib.WithNumber("severity_gte", mcplib.Description("Minimum severity number, inclusive")),
			mcplib.WithNumber("since", mcplib.Description("Nanosecond epoch lower bound, inclusive")),
			mcplib.WithNumber("until", mcplib.Description("Nanosecond epoch upper bound, exclusive")),
			mcplib.WithNumber("limit", mcplib.Description("Maximum records to return")),
			mcplib.WithBoolean("count_only", mcplib.Description("Return only the match count, no records")),
			mcplib.WithBoolean("include_stats", mcplib.Description("Include by_service/by_severity breakdowns")),
		),
		s.handleSearch,
	)

	s.addTool(
		mcplib.NewTool("otell_traces",
			mcplib.WithDescription("List recent traces with their root span, duration and status"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("service", mcplib.Description("Filter to one service name")),
			mcplib.WithNumber("since", mcplib.Description("Nanosecond epoch lower bound, inclusive")),
			mcplib.WithNumber("until", mcplib.Description("Nanosecond epoch upper bound, exclusive")),
			mcplib.WithNumber("limit", mcplib.Description("Maximum traces to return")),
		),
		s.handleTraces,
	)

	s.addTool(
		mcplib.NewTool("otell_trace",
			mcplib.WithDescription("Fetch every span of one trace, optionally with related logs"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("trace_id", mcplib.Description("Trace ID as lowercase hex"), mcplib.Required()),
			mcplib.WithString("logs", mcplib.Description("Related-log policy: none, bounded or all")),
		),
		s.handleTrace,
	)

	s.addTool(
		mcplib.NewTool("otell_span",
			mcplib.WithDescription("Fetch one span by trace_id and span_id, optionally with related logs"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("trace_id", mcplib.Description("Trace ID as lowercase hex"), mcplib.Required()),
			mcplib.WithString("span_id", mcplib.Description("Span ID as lowercase hex"), mcplib.Required()),
			mcplib.WithString("logs", mcplib.Description("Related-log policy: none, bounded or all")),
		),
		s.handleSpan,
	)

	s.addTool(
		mcplib.NewTool("otell_metrics",
			mcplib.WithDescription("Aggregate one metric over a time window, optionally grouped by service or attribute"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("name", mcplib.Description("Metric name"), mcplib.Required()),
			mcplib.WithString("agg", mcplib.Description("Aggregation: avg, count, min, max, p50, p95, p99")),
			mcplib.WithString("group_by", mcplib.Description("\"\", \"service\" or an attribute key")),
			mcplib.WithString("service", mcplib.Description("Filter to one service name")),
			mcplib.WithNumber("since", mcplib.Description("Nanosecond epoch lower bound, inclusive")),
			mcplib.WithNumber("until", mcplib.Description("Nanosecond epoch upper bound, exclusive")),
		),
		s.handleMetrics,
	)

	s.addTool(
		mcplib.NewTool("otell_metrics_list",
			mcplib.WithDescription("List known metric names with their sample counts"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("service", mcplib.Description("Filter to one service name")),
		),
		s.handleMetricsList,
	)

	s.addTool(
		mcplib.NewTool("otell_status",
			mcplib.WithDescription("Report store health: db path, size on disk, row counts and time range"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleStatus,
	)

	s.addTool(
		mcplib.NewTool("otell_resolve_handle",
			mcplib.WithDescription("Re-run the query a handle (returned by any other otell_* tool) was computed from"),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithString("handle", mcplib.Description("A handle string returned by a previous call"), mcplib.Required()),
		),
		s.handleResolveHandle,
	)
}

func (s *Server) handleSearch(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var f model.Filter
	applyCommonFilter(req, &f)
	sr := model.SearchRequest{
		Filter:       f,
		Pattern:      req.GetString("pattern", ""),
		Fixed:        req.GetBool("fixed", false),
		IgnoreCase:   req.GetBool("ignore_case", false),
		CountOnly:    req.GetBool("count_only", false),
		IncludeStats: req.GetBool("include_stats", false),
	}
	return s.run(ctx, query.ApiRequest{Op: query.OpSearch, Search: &sr})
}

func (s *Server) handleTraces(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var f model.Filter
	applyCommonFilter(req, &f)
	tr := model.TracesRequest{Filter: f}
	return s.run(ctx, query.ApiRequest{Op: query.OpTraces, Traces: &tr})
}

func (s *Server) handleTrace(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	tr := model.TraceRequest{
		TraceID: req.GetString("trace_id", ""),
		Logs:    parseLogsPolicyArg(req.GetString("logs", "")),
	}
	return s.run(ctx, query.ApiRequest{Op: query.OpTrace, Trace: &tr})
}

func (s *Server) handleSpan(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	sr := model.SpanRequest{
		TraceID: req.GetString("trace_id", ""),
		SpanID:  req.GetString("span_id", ""),
		Logs:    parseLogsPolicyArg(req.GetString("logs", "")),
	}
	return s.run(ctx, query.ApiRequest{Op: query.OpSpan, Span: &sr})
}

func (s *Server) handleMetrics(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var f model.Filter
	applyCommonFilter(req, &f)
	agg, _ := model.ParseMetricAgg(req.GetString("agg", "avg"))
	mr := model.MetricsRequest{
		Filter:  f,
		Name:    req.GetString("name", ""),
		GroupBy: req.GetString("group_by", ""),
		Agg:     agg,
	}
	return s.run(ctx, query.ApiRequest{Op: query.OpMetrics, Metrics: &mr})
}

func (s *Server) handleMetricsList(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	var f model.Filter
	applyCommonFilter(req, &f)
	mr := model.MetricsListRequest{Filter: f}
	return s.run(ctx, query.ApiRequest{Op: query.OpMetricsList, MetricsList: &mr})
}

func (s *Server) handleStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	return s.run(ctx, query.ApiRequest{Op: query.OpStatus})
}

func (s *Server) handleResolveHandle(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	h := req.GetString("handle", "")
	if h == "" {
		return errorResult("handle is required"), nil
	}
	return s.run(ctx, query.ApiRequest{Op: query.OpResolveHandle, Handle: h})
}

// run dispatches req and renders the resulting ApiResponse as the
// tool's JSON text content, mirroring akashi's json.Marshal-into-
// TextContent result shape.
func (s *Server) run(ctx context.Context, req query.ApiRequest) (*mcplib.CallToolResult, error) {
	resp := s.dispatch(ctx, req)
	if resp.Error != "" {
		return errorResult(resp.Error), nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return errorResult(fmt.Sprintf("marshal response: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.TextContent{Type: "text", Text: string(data)}},
	}, nil
}

func applyCommonFilter(req mcplib.CallToolRequest, f *model.Filter) {
	f.Service = req.GetString("service", "")
	if since := req.GetFloat("since", 0); since != 0 {
		n := int64(since)
		f.Since = &n
	}
	if until := req.GetFloat("until", 0); until != 0 {
		n := int64(until)
		f.Until = &n
	}
	if sev := req.GetFloat("severity_gte", 0); sev != 0 {
		s := model.Severity(int(sev))
		f.SeverityGte = &s
	}
	if limit := req.GetInt("limit", 0); limit != 0 {
		f.Limit = limit
	}
}

func parseLogsPolicyArg(s string) model.LogsPolicy {
	switch s {
	case "bounded":
		return model.LogsBounded
	case "all":
		return model.LogsAll
	default:
		return model.LogsNone
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.TextContent{Type: "text", Text: msg}},
		IsError: true,
	}
}
