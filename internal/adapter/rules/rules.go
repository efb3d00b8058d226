// Package rules loads operator tunables for the mining pipeline from YAML.
package rules

import (
	"strings"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
)

// DefaultSampleSize is the number of distinct values sampled per column.
const DefaultSampleSize = 100

// Rules holds operator-controlled configuration loaded from a YAML file.
type Rules struct {
	Corpus     CorpusRules    `yaml:"corpus"`
	DDL        DDLRules       `yaml:"ddl"`
	Candidates CandidateRules `yaml:"candidates"`
	Sampling   SamplingRules  `yaml:"sampling"`
}

type CorpusRules struct {
	Separator string `yaml:"separator"`
}

type DDLRules struct {
	ColumnType      string   `yaml:"column_type"`
	ShortTableNames []string `yaml:"short_table_names"`
	InferReferences bool     `yaml:"infer_references"`
}

type CandidateRules struct {
	MinLength         int    `yaml:"min_length"`
	MaxLength         int    `yaml:"max_length"`
	DefaultTable      string `yaml:"default_table"`
	MatchConjunctions bool   `yaml:"match_conjunctions"`
}

// SamplingRules bounds what the profiler may read. Exclude maps a table name
// to columns that must never be sampled; "*" excludes the whole table.
type SamplingRules struct {
	SampleSize int                 `yaml:"sample_size"`
	Exclude    map[string][]string `yaml:"exclude"`
}

// Default returns the rules used when no file is configured.
func Default() *Rules {
	return &Rules{
		Corpus: CorpusRules{Separator: domain.DefaultCorpusSeparator},
		DDL: DDLRules{
			ColumnType:      "TEXT",
			ShortTableNames: append([]string(nil), domain.DefaultShortNames...),
		},
		Candidates: CandidateRules{
			MinLength:    4,
			MaxLength:    40,
			DefaultTable: domain.GlobalTable,
		},
		Sampling: SamplingRules{SampleSize: DefaultSampleSize},
	}
}

// DDLOptions converts the ddl section to synthesizer options.
func (r *Rules) DDLOptions() domain.DDLOptions {
	return domain.DDLOptions{
		ColumnType:      r.DDL.ColumnType,
		ShortNames:      r.DDL.ShortTableNames,
		InferReferences: r.DDL.InferReferences,
	}
}

// CandidateOptions converts the candidates section to detector options.
func (r *Rules) CandidateOptions() domain.CandidateOptions {
	return domain.CandidateOptions{
		MinLength:         r.Candidates.MinLength,
		MaxLength:         r.Candidates.MaxLength,
		DefaultTable:      r.Candidates.DefaultTable,
		MatchConjunctions: r.Candidates.MatchConjunctions,
	}
}

// Excluded reports whether table.column must not be sampled. Table names
// match case-insensitively, with or without a schema qualifier.
func (r *Rules) Excluded(table, column string) bool {
	for key, cols := range r.Sampling.Exclude {
		if !tableMatches(key, table) {
			continue
		}
		for _, c := range cols {
			if c == "*" || strings.EqualFold(c, column) {
				return true
			}
		}
	}
	return false
}

func tableMatches(key, table string) bool {
	if strings.EqualFold(key, table) {
		return true
	}
	bare := func(s string) string {
		if i := strings.LastIndexByte(s, '.'); i >= 0 {
			return s[i+1:]
		}
		return s
	}
	return strings.EqualFold(bare(key), bare(table))
}
