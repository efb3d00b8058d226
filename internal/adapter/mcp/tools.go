package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/guillermoBallester/sqlmine/internal/core/service"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "sqlmine"

// Tool descriptions
const (
	descNormalize = "Normalize one SQL query into its parameterized form: every literal becomes ?, " +
		"keywords are upper-cased and whitespace is canonical. " +
		"Two queries that differ only in literal values normalize to the same string."

	descRank = "Rank a corpus of SQL queries by how often each parameterized shape occurs. " +
		"Returns the most frequent shapes first, each with its occurrence count and the first original query seen. " +
		"Inputs that cannot be tokenized are skipped."

	descAnalyze = "Extract the structural summary of one SQL query: referenced tables, selected columns, " +
		"joins with their ON predicates, WHERE filters, GROUP BY and ORDER BY items."

	descBuild = "Analyze every query in a corpus and return the knowledge base: one structural summary per " +
		"query that could be tokenized, plus the number skipped. " +
		"Set top_n to also attach the frequency ranking of the same corpus."

	descDDL = "Synthesize a CREATE TABLE skeleton from the tables and columns a corpus of queries references. " +
		"Column types are unknown, so every column uses the configured placeholder type."

	descCandidates = "Detect columns that look like they hold codes or serial numbers, from equality and LIKE " +
		"filters against short quoted values. Pass records (question, sql, table_name) or a corpus of queries."

	descProfileValues = "Fingerprint a list of sample values: length distribution, character-class ratios, " +
		"per-position entropy, a format pattern and an overall shape class."

	descProfileColumn = "Sample distinct values of one database column and fingerprint them like profile_values. " +
		"Sampling is read-only and bounded by the configured sample size and query timeout."

	descQueries = "SQL queries, one per element"
	descCorpus  = "Corpus text with queries separated by the configured separator (alternative to queries)"
)

var stringItems = map[string]any{"type": "string"}

var recordItems = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"question":   map[string]any{"type": "string"},
		"sql":        map[string]any{"type": "string"},
		"table_name": map[string]any{"type": "string"},
	},
	"required": []string{"sql"},
}

// Tools holds the services and settings the tool handlers share.
type Tools struct {
	Mining    *service.MiningService
	Profiler  *service.ProfilerService
	Separator string
	Logger    *slog.Logger
}

func RegisterTools(s *server.MCPServer, t Tools) {
	s.AddTool(
		mcp.NewTool("normalize_sql",
			mcp.WithDescription(descNormalize),
			mcp.WithString("sql", mcp.Required(), mcp.Description("SQL query to normalize")),
		),
		t.normalizeHandler(),
	)

	s.AddTool(
		mcp.NewTool("rank_queries",
			mcp.WithDescription(descRank),
			mcp.WithArray("queries", mcp.Description(descQueries), mcp.Items(stringItems)),
			mcp.WithString("corpus", mcp.Description(descCorpus)),
			mcp.WithNumber("top_n", mcp.Description("Number of shapes to return; 0 or omitted returns all")),
		),
		t.rankHandler(),
	)

	s.AddTool(
		mcp.NewTool("analyze_sql",
			mcp.WithDescription(descAnalyze),
			mcp.WithString("sql", mcp.Required(), mcp.Description("SQL query to analyze")),
		),
		t.analyzeHandler(),
	)

	s.AddTool(
		mcp.NewTool("build_knowledge_base",
			mcp.WithDescription(descBuild),
			mcp.WithArray("queries", mcp.Description(descQueries), mcp.Items(stringItems)),
			mcp.WithString("corpus", mcp.Description(descCorpus)),
			mcp.WithNumber("top_n", mcp.Description("Attach the top N frequency ranking when greater than 0")),
		),
		t.buildHandler(),
	)

	s.AddTool(
		mcp.NewTool("synthesize_ddl",
			mcp.WithDescription(descDDL),
			mcp.WithArray("queries", mcp.Description(descQueries), mcp.Items(stringItems)),
			mcp.WithString("corpus", mcp.Description(descCorpus)),
		),
		t.ddlHandler(),
	)

	s.AddTool(
		mcp.NewTool("detect_candidates",
			mcp.WithDescription(descCandidates),
			mcp.WithArray("records", mcp.Description("Question/SQL pairs with an optional table_name"), mcp.Items(recordItems)),
			mcp.WithArray("queries", mcp.Description(descQueries), mcp.Items(stringItems)),
			mcp.WithString("corpus", mcp.Description(descCorpus)),
		),
		t.candidatesHandler(),
	)

	s.AddTool(
		mcp.NewTool("profile_values",
			mcp.WithDescription(descProfileValues),
			mcp.WithArray("values", mcp.Required(), mcp.Description("Sample values to profile"), mcp.Items(stringItems)),
		),
		t.profileValuesHandler(),
	)

	if t.Profiler != nil && t.Profiler.CanSample() {
		s.AddTool(
			mcp.NewTool("profile_column",
				mcp.WithDescription(descProfileColumn),
				mcp.WithString("table", mcp.Required(), mcp.Description("Table name, optionally schema-qualified")),
				mcp.WithString("column", mcp.Required(), mcp.Description("Column name")),
			),
			t.profileColumnHandler(),
		)
	}
}

func (t Tools) normalizeHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		form, err := t.Mining.Normalize(sql)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(t.Logger, err, "normalize")), nil
		}

		return jsonResult(map[string]string{"parameterized_form": form})
	}
}

func (t Tools) rankHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		corpus, err := corpusArg(request, t.Separator)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topN, err := intArg(request, "top_n")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(t.Mining.Rank(ctx, corpus, topN))
	}
}

func (t Tools) analyzeHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, ok := request.GetArguments()["sql"].(string)
		if !ok || sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		entry, err := t.Mining.Analyze(sql)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(t.Logger, err, "analyze")), nil
		}

		return jsonResult(entry)
	}
}

func (t Tools) buildHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		corpus, err := corpusArg(request, t.Separator)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topN, err := intArg(request, "top_n")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var kb *domain.KnowledgeBase
		if topN > 0 {
			kb, err = t.Mining.BuildWithFrequencies(ctx, corpus, topN)
		} else {
			kb, err = t.Mining.Build(ctx, corpus)
		}
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(t.Logger, err, "build")), nil
		}

		return jsonResult(kb)
	}
}

func (t Tools) ddlHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		corpus, err := corpusArg(request, t.Separator)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		kb, err := t.Mining.Build(ctx, corpus)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(t.Logger, err, "build")), nil
		}

		return mcp.NewToolResultText(domain.FormatDDL(t.Mining.Synthesize(kb.Entries))), nil
	}
}

func (t Tools) candidatesHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if raw, ok := request.GetArguments()["records"]; ok && raw != nil {
			records, err := recordsArg(raw)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return jsonResult(map[string]any{
				"candidates": t.Mining.Detect(records),
				"tally":      t.Mining.Tally(records),
			})
		}

		corpus, err := corpusArg(request, t.Separator)
		if err != nil {
			return mcp.NewToolResultError("records, queries or corpus is required"), nil
		}
		kb, err := t.Mining.Build(ctx, corpus)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(t.Logger, err, "build")), nil
		}

		return jsonResult(map[string]any{"candidates": t.Mining.DetectInKnowledge(kb.Entries)})
	}
}

func (t Tools) profileValuesHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		values, ok := stringSlice(request.GetArguments()["values"])
		if !ok {
			return mcp.NewToolResultError("values must be an array of strings"), nil
		}

		return jsonResult(domain.ProfileColumn(values))
	}
}

func (t Tools) profileColumnHandler() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, ok := request.GetArguments()["table"].(string)
		if !ok || table == "" {
			return mcp.NewToolResultError("table is required"), nil
		}
		column, ok := request.GetArguments()["column"].(string)
		if !ok || column == "" {
			return mcp.NewToolResultError("column is required"), nil
		}

		profile, err := t.Profiler.ProfileColumn(ctx, table, column)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(t.Logger, err, "profile column")), nil
		}

		return jsonResult(profile)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// corpusArg reads the corpus from "queries" or, failing that, splits "corpus".
func corpusArg(request mcp.CallToolRequest, separator string) ([]string, error) {
	args := request.GetArguments()
	if raw, ok := args["queries"]; ok && raw != nil {
		queries, ok := stringSlice(raw)
		if !ok {
			return nil, errors.New("queries must be an array of strings")
		}
		return queries, nil
	}
	if blob, ok := args["corpus"].(string); ok && strings.TrimSpace(blob) != "" {
		return domain.SplitCorpus(blob, separator), nil
	}
	return nil, errors.New("queries or corpus is required")
}

func stringSlice(raw any) ([]string, bool) {
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func intArg(request mcp.CallToolRequest, name string) (int, error) {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return 0, nil
	}
	f, ok := raw.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return int(f), nil
}

func recordsArg(raw any) ([]domain.QARecord, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid records: %w", err)
	}
	var records []domain.QARecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.New("records must be an array of {question, sql, table_name} objects")
	}
	return records, nil
}

// sanitizeError maps an error to a message safe to return to the client.
// Input errors pass through; anything else is logged and replaced.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	switch {
	case errors.Is(err, domain.ErrTokenize),
		errors.Is(err, domain.ErrEmptyQuery),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidIdentifier),
		errors.Is(err, domain.ErrExcluded):
		return fmt.Sprintf("%s failed: %v", op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return op + " timed out"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "57014" {
		return op + " timed out"
	}

	logger.Error("tool failed", slog.String("op", op), slog.String("error.message", err.Error()))
	return fmt.Sprintf("%s failed: internal error, check server logs", op)
}
