package mcp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// batchArgs are the array arguments whose length is reported as the batch
// size of a tool call.
var batchArgs = []string{"queries", "records", "values"}

// toolCalls tracks in-flight tool calls between the before and after hooks.
type toolCalls struct {
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     port.Instrumentation
	inflight sync.Map // request id -> *inflightCall
}

type inflightCall struct {
	start time.Time
	span  trace.Span
}

// ToolCallHooks creates MCP hooks that log every tool call with its duration
// and batch size, and record a span and a duration metric for it.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	c := &toolCalls{logger: logger, tracer: tracer, inst: inst}

	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(c.begin)
	hooks.AddAfterCallTool(c.after)
	hooks.AddOnError(c.failed)
	return hooks
}

func (c *toolCalls) begin(ctx context.Context, id any, req *mcp.CallToolRequest) {
	attrs := []attribute.KeyValue{attribute.String("mcp.tool", req.Params.Name)}
	if n, ok := batchSize(req); ok {
		attrs = append(attrs, attribute.Int("mcp.tool.batch_size", n))
	}
	_, span := c.tracer.Start(ctx, "mcp.tool.call", trace.WithAttributes(attrs...))
	c.inflight.Store(id, &inflightCall{start: time.Now(), span: span})
}

func (c *toolCalls) after(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
	errMsg := ""
	if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
		errMsg = resultText(r)
		if errMsg == "" {
			errMsg = "tool returned error"
		}
	}
	c.finish(ctx, id, req.Params.Name, errMsg)
}

func (c *toolCalls) failed(ctx context.Context, id any, _ mcp.MCPMethod, message any, err error) {
	req, ok := message.(*mcp.CallToolRequest)
	if !ok {
		return
	}
	c.finish(ctx, id, req.Params.Name, err.Error())
}

// finish logs the call and closes its span. errMsg is empty on success.
func (c *toolCalls) finish(ctx context.Context, id any, tool, errMsg string) {
	var (
		duration time.Duration
		span     trace.Span
	)
	if v, ok := c.inflight.LoadAndDelete(id); ok {
		call := v.(*inflightCall)
		duration = time.Since(call.start)
		span = call.span
	}

	attrs := []slog.Attr{
		slog.String("rpc.method", "tools/call"),
		slog.String("mcp.tool", tool),
		slog.Duration("duration", duration),
		slog.Bool("error", errMsg != ""),
	}
	level := slog.LevelInfo
	if errMsg != "" {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error.message", errMsg))
	}
	c.logger.LogAttrs(ctx, level, "tool call", attrs...)
	c.inst.RecordToolDuration(ctx, float64(duration.Milliseconds()))

	if span == nil {
		return
	}
	if errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()
}

// batchSize returns the length of the first array argument of a batch tool.
func batchSize(req *mcp.CallToolRequest) (int, bool) {
	args := req.GetArguments()
	for _, name := range batchArgs {
		if items, ok := args[name].([]any); ok {
			return len(items), true
		}
	}
	return 0, false
}

func resultText(r *mcp.CallToolResult) string {
	for _, content := range r.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
