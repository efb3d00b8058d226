package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/sqlmine/internal/artifact"
	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sqlmine",
		Short: "Mine a SQL corpus for query shapes, schema knowledge and identifier columns",
		Long: `sqlmine turns a corpus of observed SQL statements into a frequency-ranked set of
parameterized queries, a per-query knowledge base of tables, columns, joins and
filters, a CREATE TABLE skeleton, and statistical fingerprints of the columns
that look like they hold codes or serial numbers.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	a.flags = registerFlags(root.PersistentFlags())

	root.AddCommand(
		newRankCmd(a),
		newAnalyzeCmd(a),
		newDDLCmd(a),
		newCandidatesCmd(a),
		newProfileCmd(a),
		newServeCmd(a),
	)
	return root
}

type ioFlags struct {
	input  string
	output string
}

func addIOFlags(cmd *cobra.Command, f *ioFlags, inputHelp string) {
	cmd.Flags().StringVarP(&f.input, "input", "i", artifact.Stdio, inputHelp)
	cmd.Flags().StringVarP(&f.output, "output", "o", artifact.Stdio, "Output file (- for stdout)")
}

func newRankCmd(a *app) *cobra.Command {
	var paths ioFlags
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank the corpus by parameterized query shape",
		Args:  cobra.NoArgs,
	}
	addIOFlags(cmd, &paths, "Corpus file (- for stdin)")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		corpus, err := artifact.ReadCorpus(paths.input, a.rules.Corpus.Separator)
		if err != nil {
			return err
		}
		entries := a.mining.Rank(cmd.Context(), corpus, a.cfg.TopN)
		a.logger.Info("corpus ranked",
			slog.Int("corpus.size", len(corpus)),
			slog.Int("rank.shapes", len(entries)),
		)
		return artifact.WriteJSON(paths.output, entries)
	})
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		paths       ioFlags
		frequencies bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Build the knowledge base of a corpus",
		Long: `Analyze every corpus query and write one knowledge entry per query that could be
tokenized. The output is a bare entry array when every query was analyzed;
when queries were skipped, or with --frequencies, it is an object that also
carries the skipped count, the failures and the frequency ranking (bounded
by --top).`,
		Args: cobra.NoArgs,
	}
	addIOFlags(cmd, &paths, "Corpus file (- for stdin)")
	cmd.Flags().BoolVar(&frequencies, "frequencies", false, "Attach the frequency ranking to the knowledge base")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		corpus, err := artifact.ReadCorpus(paths.input, a.rules.Corpus.Separator)
		if err != nil {
			return err
		}

		var kb *domain.KnowledgeBase
		if frequencies {
			kb, err = a.mining.BuildWithFrequencies(cmd.Context(), corpus, a.cfg.TopN)
		} else {
			kb, err = a.mining.Build(cmd.Context(), corpus)
		}
		if err != nil {
			return fmt.Errorf("building knowledge base: %w", err)
		}
		return artifact.WriteKnowledge(paths.output, kb)
	})
	return cmd
}

func newDDLCmd(a *app) *cobra.Command {
	var (
		paths      ioFlags
		fromCorpus bool
	)
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Synthesize a CREATE TABLE skeleton from a knowledge base",
		Args:  cobra.NoArgs,
	}
	addIOFlags(cmd, &paths, "Knowledge base JSON, or a corpus with --from-corpus (- for stdin)")
	cmd.Flags().BoolVar(&fromCorpus, "from-corpus", false, "Treat the input as a corpus and analyze it first")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		entries, err := a.loadEntries(cmd, paths.input, fromCorpus)
		if err != nil {
			return err
		}
		stmts := a.mining.Synthesize(entries)
		a.logger.Info("ddl synthesized", slog.Int("ddl.tables", len(stmts)))
		return artifact.WriteDDL(paths.output, stmts)
	})
	return cmd
}

func newCandidatesCmd(a *app) *cobra.Command {
	var (
		out       string
		records   string
		knowledge string
		tally     bool
	)
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Detect columns filtered by short code-like values",
		Long: `Detect candidate identifier columns either from question/SQL records
(--records, a JSON array of {question, sql, table_name}) or from the filters of
a knowledge base (--knowledge). The output maps each column to its table; with
--tally every table a column was seen under is listed with a count.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&out, "output", "o", artifact.Stdio, "Output file (- for stdout)")
	cmd.Flags().StringVar(&records, "records", "", "Question/SQL records JSON")
	cmd.Flags().StringVar(&knowledge, "knowledge", "", "Knowledge base JSON")
	cmd.Flags().BoolVar(&tally, "tally", false, "Report per-table counts instead of the last table seen (records only)")
	cmd.MarkFlagsOneRequired("records", "knowledge")
	cmd.MarkFlagsMutuallyExclusive("records", "knowledge")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		if records != "" {
			recs, err := artifact.ReadQARecords(records)
			if err != nil {
				return err
			}
			if tally {
				return artifact.WriteJSON(out, a.mining.Tally(recs))
			}
			return artifact.WriteJSON(out, a.mining.Detect(recs))
		}
		if tally {
			return errors.New("--tally needs --records")
		}
		entries, err := artifact.ReadKnowledge(knowledge)
		if err != nil {
			return err
		}
		return artifact.WriteJSON(out, a.mining.DetectInKnowledge(entries))
	})
	return cmd
}

func newProfileCmd(a *app) *cobra.Command {
	var (
		out        string
		values     string
		table      string
		column     string
		candidates string
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Fingerprint column values",
		Long: `Fingerprint sample values read from a file (--values, one per line) without a
database, or sample them from the configured database: one column with
--table and --column, or every column of a candidates file with --candidates.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVarP(&out, "output", "o", artifact.Stdio, "Output file (- for stdout)")
	cmd.Flags().StringVar(&values, "values", "", "File with one sample value per line")
	cmd.Flags().StringVar(&table, "table", "", "Table to sample")
	cmd.Flags().StringVar(&column, "column", "", "Column to sample")
	cmd.Flags().StringVar(&candidates, "candidates", "", "Candidates JSON written by the candidates command")
	cmd.MarkFlagsRequiredTogether("table", "column")
	cmd.MarkFlagsOneRequired("values", "table", "candidates")
	cmd.MarkFlagsMutuallyExclusive("values", "table", "candidates")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		if values != "" {
			vals, err := artifact.ReadValues(values)
			if err != nil {
				return err
			}
			return artifact.WriteJSON(out, a.profiler(nil).ProfileValues(vals))
		}

		sampler, closeDB, err := a.openSampler(cmd.Context())
		if err != nil {
			return err
		}
		defer closeDB()
		profiler := a.profiler(sampler)

		if table != "" {
			profile, err := profiler.ProfileColumn(cmd.Context(), table, column)
			if err != nil {
				return err
			}
			return artifact.WriteJSON(out, profile)
		}

		cands, err := artifact.ReadCandidates(candidates)
		if err != nil {
			return err
		}
		return artifact.WriteJSON(out, profiler.ProfileCandidates(cmd.Context(), cands))
	})
	return cmd
}

// loadEntries reads knowledge entries, building them from a corpus when asked.
func (a *app) loadEntries(cmd *cobra.Command, path string, fromCorpus bool) ([]domain.KnowledgeEntry, error) {
	if !fromCorpus {
		return artifact.ReadKnowledge(path)
	}
	corpus, err := artifact.ReadCorpus(path, a.rules.Corpus.Separator)
	if err != nil {
		return nil, err
	}
	kb, err := a.mining.Build(cmd.Context(), corpus)
	if err != nil {
		return nil, fmt.Errorf("building knowledge base: %w", err)
	}
	return kb.Entries, nil
}
