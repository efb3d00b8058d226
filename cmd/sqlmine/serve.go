package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/adapter/mcp"
	"github.com/guillermoBallester/sqlmine/internal/core/port"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mining tools over MCP (stdio or streamable HTTP)",
		Long: `Serve normalize, rank, analyze, knowledge-base, DDL, candidate and profiling
tools over the Model Context Protocol. When a database is configured the
profile_column tool samples it directly.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		return a.serve(cmd.Context())
	})
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	a.logger.Info("starting sqlmine",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("transport", cfg.Transport),
		slog.Int("workers", cfg.Workers),
		slog.Int("sample_size", a.rules.Sampling.SampleSize),
		slog.Bool("otel", cfg.OTelEnabled),
	)

	var sampler port.ColumnSampler
	if cfg.DatabaseURL != "" {
		s, closeDB, err := a.openSampler(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		sampler = s
	} else {
		a.logger.Info("no database configured, profile_column disabled")
	}

	mcpServer := mcp.NewServer(version, mcp.Tools{
		Mining:    a.mining,
		Profiler:  a.profiler(sampler),
		Separator: a.rules.Corpus.Separator,
		Logger:    a.logger,
	}, a.logger, a.tracer, a.inst)

	if cfg.Transport == "http" {
		return a.serveHTTP(ctx, mcpServer)
	}

	stdioServer := mcpserver.NewStdioServer(mcpServer)
	a.logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

func (a *app) serveHTTP(ctx context.Context, mcpServer *mcpserver.MCPServer) error {
	streamable := mcpserver.NewStreamableHTTPServer(mcpServer)

	mux := http.NewServeMux()
	mux.Handle("/mcp", bearerAuthMiddleware(streamable, a.cfg.HTTPBearerToken))
	mux.HandleFunc("/health", healthHandler)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           recoveryMiddleware(mux, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving MCP over HTTP", slog.String("http.addr", a.cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
