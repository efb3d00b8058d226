package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/guillermoBallester/sqlmine/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// MiningOptions tunes the corpus pipeline.
type MiningOptions struct {
	Workers    int // concurrent analyzers in Build; <= 1 runs sequentially
	DDL        domain.DDLOptions
	Candidates domain.CandidateOptions
}

// DefaultMiningOptions returns sequential analysis with default rules.
func DefaultMiningOptions() MiningOptions {
	return MiningOptions{
		Workers:    1,
		DDL:        domain.DefaultDDLOptions(),
		Candidates: domain.DefaultCandidateOptions(),
	}
}

// MiningService runs the corpus pipelines: normalization and ranking, and
// structural analysis into a knowledge base.
type MiningService struct {
	tokenizer port.Tokenizer
	rejects   port.RejectRecorder
	logger    *slog.Logger
	tracer    trace.Tracer
	inst      port.Instrumentation
	opts      MiningOptions
}

func NewMiningService(tokenizer port.Tokenizer, rejects port.RejectRecorder, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation, opts MiningOptions) *MiningService {
	if rejects == nil {
		rejects = port.NoopRejectRecorder{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &MiningService{
		tokenizer: tokenizer,
		rejects:   rejects,
		logger:    logger,
		tracer:    tracer,
		inst:      inst,
		opts:      opts,
	}
}

// Normalize returns the parameterized form of sql.
func (s *MiningService) Normalize(sql string) (string, error) {
	tree, err := s.tokenizer.Tokenize(sql)
	if err != nil {
		return "", err
	}
	return domain.Parameterize(tree), nil
}

// Rank returns the topN most frequent query shapes of the corpus.
func (s *MiningService) Rank(ctx context.Context, corpus []string, topN int) []domain.FrequencyEntry {
	_, span := s.tracer.Start(ctx, "MiningService.Rank",
		trace.WithAttributes(attribute.Int("corpus.size", len(corpus))),
	)
	defer span.End()

	entries, failures := domain.Rank(corpus, topN, s.Normalize)
	s.reportFailures(ctx, "rank", failures)
	span.SetAttributes(attribute.Int("rank.shapes", len(entries)))
	return entries
}

// Analyze returns the structural summary of sql.
func (s *MiningService) Analyze(sql string) (domain.KnowledgeEntry, error) {
	tree, err := s.tokenizer.Tokenize(sql)
	if err != nil {
		return domain.KnowledgeEntry{}, err
	}
	return domain.Analyze(sql, tree), nil
}

// Build analyzes every corpus input independently. Inputs that fail to
// tokenize are skipped and reported; entry order follows the corpus.
func (s *MiningService) Build(ctx context.Context, corpus []string) (*domain.KnowledgeBase, error) {
	ctx, span := s.tracer.Start(ctx, "MiningService.Build",
		trace.WithAttributes(
			attribute.Int("corpus.size", len(corpus)),
			attribute.Int("build.workers", s.opts.Workers),
		),
	)
	defer span.End()

	start := time.Now()
	results := make([]domain.AnalysisResult, len(corpus))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.opts.Workers, 1))
	for i, q := range corpus {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, err := s.Analyze(q)
			results[i] = domain.AnalysisResult{Entry: entry, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	kb := domain.Assemble(corpus, results)
	s.reportFailures(ctx, "build", kb.Failures)

	s.inst.IncrementAnalyzed(ctx, int64(len(kb.Entries)))
	s.inst.RecordBuildDuration(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(
		attribute.Int("build.entries", len(kb.Entries)),
		attribute.Int("build.skipped", kb.Skipped),
	)
	s.logger.InfoContext(ctx, "knowledge base built",
		slog.Int("corpus.size", len(corpus)),
		slog.Int("build.entries", len(kb.Entries)),
		slog.Int("build.skipped", kb.Skipped),
		slog.Duration("duration", time.Since(start)),
	)
	return kb, nil
}

// BuildWithFrequencies builds the knowledge base and attaches the topN
// frequency table of the same corpus.
func (s *MiningService) BuildWithFrequencies(ctx context.Context, corpus []string, topN int) (*domain.KnowledgeBase, error) {
	kb, err := s.Build(ctx, corpus)
	if err != nil {
		return nil, err
	}
	kb.Frequencies = s.Rank(ctx, corpus, topN)
	return kb, nil
}

// Synthesize returns the schema skeleton implied by entries.
func (s *MiningService) Synthesize(entries []domain.KnowledgeEntry) []string {
	return domain.SynthesizeDDL(entries, s.opts.DDL)
}

// Detect maps serial-number shaped filter columns to their tables.
func (s *MiningService) Detect(records []domain.QARecord) map[string]string {
	return domain.DetectCandidates(records, s.opts.Candidates)
}

// Tally is Detect keeping every table a column was seen under.
func (s *MiningService) Tally(records []domain.QARecord) map[string][]domain.TableCount {
	return domain.TallyCandidates(records, s.opts.Candidates)
}

// DetectInKnowledge runs candidate detection over knowledge-base filters.
func (s *MiningService) DetectInKnowledge(entries []domain.KnowledgeEntry) map[string]string {
	return domain.CandidatesFromKnowledge(entries, s.opts.Candidates)
}

func (s *MiningService) reportFailures(ctx context.Context, stage string, failures []domain.QueryFailure) {
	if len(failures) == 0 {
		return
	}
	s.inst.IncrementSkipped(ctx, int64(len(failures)))
	for _, f := range failures {
		s.logger.WarnContext(ctx, "query skipped",
			slog.String("stage", stage),
			slog.Int("corpus.index", f.Index),
			slog.String("error.type", "tokenize_error"),
			slog.String("error.message", f.Error),
		)
		s.rejects.Record(ctx, port.Reject{Stage: stage, Index: f.Index, SQL: f.SQL, Error: f.Error})
	}
}
