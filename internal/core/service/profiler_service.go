package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/guillermoBallester/sqlmine/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var errNoSampler = errors.New("no database configured for sampling")

// CandidateProfile pairs a candidate column with its fingerprint.
type CandidateProfile struct {
	Table   string               `json:"table"`
	Column  string               `json:"column"`
	Profile domain.ColumnProfile `json:"profile"`
	Error   string               `json:"error,omitempty"`
}

// ProfilerService samples columns through a ColumnSampler and profiles them.
type ProfilerService struct {
	sampler    port.ColumnSampler
	sampleSize int
	logger     *slog.Logger
	tracer     trace.Tracer
	inst       port.Instrumentation
}

func NewProfilerService(sampler port.ColumnSampler, sampleSize int, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *ProfilerService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &ProfilerService{
		sampler:    sampler,
		sampleSize: sampleSize,
		logger:     logger,
		tracer:     tracer,
		inst:       inst,
	}
}

// ProfileValues fingerprints values that were sampled elsewhere.
func (s *ProfilerService) ProfileValues(values []string) domain.ColumnProfile {
	return domain.ProfileColumn(values)
}

// CanSample reports whether a database is wired for column sampling.
func (s *ProfilerService) CanSample() bool {
	return s.sampler != nil
}

// ProfileColumn samples table.column and returns its fingerprint.
func (s *ProfilerService) ProfileColumn(ctx context.Context, table, column string) (*domain.ColumnProfile, error) {
	if s.sampler == nil {
		return nil, errNoSampler
	}
	ctx, span := s.tracer.Start(ctx, "ProfilerService.ProfileColumn",
		trace.WithAttributes(
			attribute.String("db.collection.name", table),
			attribute.String("db.column.name", column),
			attribute.Int("sample.limit", s.sampleSize),
		),
	)
	defer span.End()

	start := time.Now()
	values, err := s.sampler.SampleColumn(ctx, table, column, s.sampleSize)
	s.inst.RecordSampleDuration(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WarnContext(ctx, "column sampling failed",
			slog.String("db.collection.name", table),
			slog.String("db.column.name", column),
			slog.String("error.message", err.Error()),
		)
		return nil, fmt.Errorf("sampling %s.%s: %w", table, column, err)
	}

	profile := domain.ProfileColumn(values)
	span.SetAttributes(
		attribute.Int("sample.size", len(values)),
		attribute.String("profile.shape", string(profile.Shape)),
	)
	return &profile, nil
}

// ProfileCandidates profiles every candidate column, sorted by column name.
// Columns mapped to the placeholder table cannot be sampled and are
// reported with an error. A failing column does not stop the others.
func (s *ProfilerService) ProfileCandidates(ctx context.Context, candidates map[string]string) []CandidateProfile {
	out := make([]CandidateProfile, 0, len(candidates))
	for _, col := range domain.SortedColumns(candidates) {
		cp := CandidateProfile{Table: candidates[col], Column: col}
		if cp.Table == domain.GlobalTable {
			cp.Error = "no table known for column"
			out = append(out, cp)
			continue
		}
		profile, err := s.ProfileColumn(ctx, cp.Table, col)
		if err != nil {
			cp.Error = err.Error()
		} else {
			cp.Profile = *profile
		}
		out = append(out, cp)
	}
	return out
}
