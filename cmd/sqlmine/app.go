package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/adapter/pgscan"
	"github.com/guillermoBallester/sqlmine/internal/adapter/rules"
	"github.com/guillermoBallester/sqlmine/internal/audit"
	"github.com/guillermoBallester/sqlmine/internal/config"
	"github.com/guillermoBallester/sqlmine/internal/core/port"
	"github.com/guillermoBallester/sqlmine/internal/core/service"
	"github.com/guillermoBallester/sqlmine/internal/telemetry"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

// app holds what every subcommand shares, built once before it runs.
type app struct {
	flags *flagValues

	cfg      *config.Config
	rules    *rules.Rules
	logger   *slog.Logger
	tracer   trace.Tracer
	inst     *telemetry.Instruments
	provider *telemetry.Provider
	rejects  port.RejectRecorder
	mining   *service.MiningService
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags.overrides(cmd.Flags()))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	// Logs go to stderr; stdout carries command output and the MCP stdio transport.
	a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	a.rules, err = rules.Load(cfg.RulesFile)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}
	if cfg.SampleSize > 0 {
		a.rules.Sampling.SampleSize = cfg.SampleSize
	}
	if cfg.RulesFile != "" {
		a.logger.Info("rules loaded", slog.String("file", cfg.RulesFile))
	}

	a.provider, a.tracer, a.inst, err = telemetry.Setup(cmd.Context(), cfg.OTelEnabled, "sqlmine", version)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	a.rejects = port.NoopRejectRecorder{}
	if cfg.RejectLog != "" {
		rl, err := audit.NewRejectLog(cfg.RejectLog)
		if err != nil {
			return fmt.Errorf("opening reject log: %w", err)
		}
		a.rejects = rl
		a.logger.Info("reject log enabled", slog.String("file", cfg.RejectLog))
	}

	opts := service.MiningOptions{
		Workers:    cfg.Workers,
		DDL:        a.rules.DDLOptions(),
		Candidates: a.rules.CandidateOptions(),
	}
	a.mining = service.NewMiningService(pgscan.NewTokenizer(), a.rejects, a.logger, a.tracer, a.inst, opts)
	return nil
}

// run wraps a subcommand so shared resources are released even when it fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer a.teardown()
		return fn(cmd, args)
	}
}

func (a *app) teardown() {
	if a.rejects != nil {
		if err := a.rejects.Close(); err != nil {
			a.logger.Warn("closing reject log", slog.String("error.message", err.Error()))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.provider.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("telemetry shutdown", slog.String("error.message", err.Error()))
	}
}

func (a *app) profiler(sampler port.ColumnSampler) *service.ProfilerService {
	return service.NewProfilerService(sampler, a.rules.Sampling.SampleSize, a.logger, a.tracer, a.inst)
}
