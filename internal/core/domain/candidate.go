package domain

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// GlobalTable is the table recorded for candidates whose table is unknown.
const GlobalTable = "global"

// QARecord is one question/SQL pair from an interaction log.
type QARecord struct {
	Question  string `json:"question"`
	SQL       string `json:"sql"`
	TableName string `json:"table_name"`
}

// CandidateOptions tunes serial-number candidate detection.
type CandidateOptions struct {
	// MinLength and MaxLength are exclusive bounds on the value length in runes.
	MinLength int
	MaxLength int
	// DefaultTable is recorded when a record names no table.
	DefaultTable string
	// MatchConjunctions also matches conditions joined by AND/OR; by default
	// only the condition right after WHERE is considered.
	MatchConjunctions bool
}

// DefaultCandidateOptions returns the options used when no rules file is given.
func DefaultCandidateOptions() CandidateOptions {
	return CandidateOptions{MinLength: 4, MaxLength: 40, DefaultTable: GlobalTable}
}

const (
	identPart  = `(?:[A-Za-z_][\w$]*|"[^"]+"|` + "`[^`]+`" + `)`
	qualIdent  = identPart + `(?:\s*\.\s*` + identPart + `)*`
	valueMatch = `\s*(?:=|LIKE)\s*'([^']*)'`
)

var (
	whereCondition = regexp.MustCompile(`(?i)\bWHERE\s+(` + qualIdent + `)` + valueMatch)
	anyCondition   = regexp.MustCompile(`(?i)\b(?:WHERE|AND|OR)\s+(` + qualIdent + `)` + valueMatch)
)

// IsCandidateValue reports whether v looks like a serial number: it mixes
// letters and digits and its length lies strictly between the bounds.
func IsCandidateValue(v string, opts CandidateOptions) bool {
	n := utf8.RuneCountInString(v)
	if n <= opts.MinLength || n >= opts.MaxLength {
		return false
	}
	var letter, digit bool
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLetter(r):
			letter = true
		}
	}
	return letter && digit
}

type conditionMatch struct {
	column    string
	qualifier string
}

func scanConditions(sql string, opts CandidateOptions) []conditionMatch {
	re := whereCondition
	if opts.MatchConjunctions {
		re = anyCondition
	}
	var out []conditionMatch
	for _, m := range re.FindAllStringSubmatch(sql, -1) {
		if !IsCandidateValue(m[2], opts) {
			continue
		}
		parts := splitQualified(m[1])
		c := conditionMatch{column: parts[len(parts)-1]}
		if len(parts) > 1 {
			c.qualifier = parts[len(parts)-2]
		}
		out = append(out, c)
	}
	return out
}

func splitQualified(s string) []string {
	raw := strings.Split(s, ".")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, Unquote(strings.TrimSpace(p)))
	}
	return parts
}

func recordTable(r QARecord, opts CandidateOptions) string {
	if r.TableName != "" {
		return r.TableName
	}
	if opts.DefaultTable != "" {
		return opts.DefaultTable
	}
	return GlobalTable
}

// DetectCandidates maps each column filtered against a serial-number shaped
// literal to the table of the record it was seen in. A column seen under
// several tables keeps the last one.
func DetectCandidates(records []QARecord, opts CandidateOptions) map[string]string {
	out := make(map[string]string)
	for _, r := range records {
		table := recordTable(r, opts)
		for _, m := range scanConditions(r.SQL, opts) {
			out[m.column] = table
		}
	}
	return out
}

// TableCount is how often a candidate column was seen under one table.
type TableCount struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

// TallyCandidates is DetectCandidates without collapsing: every table a
// column was seen under is kept, most frequent first.
func TallyCandidates(records []QARecord, opts CandidateOptions) map[string][]TableCount {
	counts := make(map[string]map[string]int)
	for _, r := range records {
		table := recordTable(r, opts)
		for _, m := range scanConditions(r.SQL, opts) {
			if counts[m.column] == nil {
				counts[m.column] = make(map[string]int)
			}
			counts[m.column][table]++
		}
	}

	out := make(map[string][]TableCount, len(counts))
	for col, tables := range counts {
		list := make([]TableCount, 0, len(tables))
		for t, n := range tables {
			list = append(list, TableCount{Table: t, Count: n})
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].Count != list[j].Count {
				return list[i].Count > list[j].Count
			}
			return list[i].Table < list[j].Table
		})
		out[col] = list
	}
	return out
}

// CandidatesFromKnowledge runs detection over knowledge-base filters. The
// table is the column's qualifier when it names one of the entry's tables,
// else the entry's only table, else the default table.
func CandidatesFromKnowledge(entries []KnowledgeEntry, opts CandidateOptions) map[string]string {
	out := make(map[string]string)
	fallback := opts.DefaultTable
	if fallback == "" {
		fallback = GlobalTable
	}
	for _, e := range entries {
		for _, f := range e.Filters {
			for _, m := range scanConditions("WHERE "+f, opts) {
				switch {
				case m.qualifier != "" && e.HasTable(m.qualifier):
					out[m.column] = m.qualifier
				case len(e.Tables) == 1:
					out[m.column] = e.Tables[0]
				default:
					out[m.column] = fallback
				}
			}
		}
	}
	return out
}

// SortedColumns returns the keys of a candidate mapping in order.
func SortedColumns(candidates map[string]string) []string {
	cols := make([]string, 0, len(candidates))
	for c := range candidates {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
