package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// DDLOptions tunes schema skeleton synthesis.
type DDLOptions struct {
	// ColumnType is written for every column. Defaults to TEXT.
	ColumnType string
	// ShortNames lists table names of two characters or fewer that are kept.
	ShortNames []string
	// InferReferences appends a REFERENCES clause to <name>_id columns whose
	// target table is part of the skeleton.
	InferReferences bool
}

// DefaultShortNames are short table names commonly seen in real queries.
var DefaultShortNames = []string{"t", "t1", "t2", "t3"}

// DefaultDDLOptions returns the options used when no rules file is given.
func DefaultDDLOptions() DDLOptions {
	return DDLOptions{ColumnType: "TEXT", ShortNames: DefaultShortNames}
}

// SynthesizeDDL emits one CREATE TABLE statement per plausible table name
// across entries. Every column of an entry is attributed to every table of
// that entry. Tables and columns are sorted.
func SynthesizeDDL(entries []KnowledgeEntry, opts DDLOptions) []string {
	if opts.ColumnType == "" {
		opts.ColumnType = "TEXT"
	}
	short := make(map[string]bool, len(opts.ShortNames))
	for _, n := range opts.ShortNames {
		short[strings.ToLower(n)] = true
	}

	schema := make(map[string]stringSet)
	for _, e := range entries {
		for _, t := range e.Tables {
			if !plausibleTable(t, short) {
				continue
			}
			cols, ok := schema[t]
			if !ok {
				cols = stringSet{}
				schema[t] = cols
			}
			for _, c := range e.Columns {
				cols.add(c)
			}
		}
	}

	names := make([]string, 0, len(schema))
	for t := range schema {
		names = append(names, t)
	}
	sort.Strings(names)

	var known map[string]bool
	if opts.InferReferences {
		known = make(map[string]bool, len(names))
		for _, t := range names {
			known[t] = true
		}
	}

	stmts := make([]string, 0, len(names))
	for _, t := range names {
		stmts = append(stmts, createTable(t, schema[t].sorted(), opts.ColumnType, known))
	}
	return stmts
}

// createTable renders one statement. known is nil unless references are
// inferred.
func createTable(table string, cols []string, colType string, known map[string]bool) string {
	if len(cols) == 0 {
		return fmt.Sprintf("CREATE TABLE %s ();", table)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", table)
	for i, c := range cols {
		fmt.Fprintf(&b, "  %s %s", ddlColumn(c), colType)
		if ref, ok := referencedTable(c, table, known); ok {
			fmt.Fprintf(&b, " REFERENCES %s", ref)
		}
		if i < len(cols)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(");")
	return b.String()
}

// ddlColumn returns name as is when it is a plain identifier, else double
// quoted with embedded quotes doubled.
func ddlColumn(name string) string {
	if plainIdent(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func plainIdent(name string) bool {
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	return name != ""
}

// plausibleTable rejects names that are probably parse artifacts: empty,
// templated, holding non-identifier characters, or too short to be real.
func plausibleTable(name string, short map[string]bool) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '$' {
			return false
		}
	}
	if len([]rune(name)) <= 2 && !short[strings.ToLower(name)] {
		return false
	}
	return true
}

// FormatDDL joins statements into a script separated by blank lines.
func FormatDDL(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n\n") + "\n"
}
