package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/sqlmine/internal/core/port"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with the mining tools and logging hooks.
func NewServer(version string, tools Tools, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	if tools.Logger == nil {
		tools.Logger = logger
	}

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, tools)

	return s
}
