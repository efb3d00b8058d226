package domain

import (
	"encoding/json"
	"sort"
)

// JoinInfo describes one join clause of a query. Type is the raw join
// keyword text and On the raw predicate, empty when there is none.
type JoinInfo struct {
	Type  string `json:"type"`
	Table string `json:"table"`
	On    string `json:"on"`
}

// UnmarshalJSON also accepts the long keys "join_type" and
// "on_predicate_text".
func (j *JoinInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type      *string `json:"type"`
		JoinType  *string `json:"join_type"`
		Table     string  `json:"table"`
		On        *string `json:"on"`
		Predicate *string `json:"on_predicate_text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*j = JoinInfo{Table: raw.Table}
	switch {
	case raw.Type != nil:
		j.Type = *raw.Type
	case raw.JoinType != nil:
		j.Type = *raw.JoinType
	}
	switch {
	case raw.On != nil:
		j.On = *raw.On
	case raw.Predicate != nil:
		j.On = *raw.Predicate
	}
	return nil
}

// KnowledgeEntry is the structural summary of one query. Tables and Columns
// are sorted and de-duplicated; Columns never holds "*", "" or a table name.
type KnowledgeEntry struct {
	SQL     string     `json:"sql"`
	Tables  []string   `json:"tables"`
	Columns []string   `json:"columns"`
	Joins   []JoinInfo `json:"joins"`
	Filters []string   `json:"filters"`
	GroupBy []string   `json:"group_by"`
	OrderBy []string   `json:"order_by"`
}

// NewKnowledgeEntry returns an entry with empty, non-nil collections.
func NewKnowledgeEntry(sql string) KnowledgeEntry {
	return KnowledgeEntry{
		SQL:     sql,
		Tables:  []string{},
		Columns: []string{},
		Joins:   []JoinInfo{},
		Filters: []string{},
		GroupBy: []string{},
		OrderBy: []string{},
	}
}

// HasTable reports whether the entry references the named table.
func (e KnowledgeEntry) HasTable(name string) bool {
	i := sort.SearchStrings(e.Tables, name)
	return i < len(e.Tables) && e.Tables[i] == name
}

// KnowledgeBase is the ordered set of entries built from a corpus.
type KnowledgeBase struct {
	Entries     []KnowledgeEntry `json:"entries"`
	Frequencies []FrequencyEntry `json:"frequencies,omitempty"`
	Skipped     int              `json:"skipped"`
	Failures    []QueryFailure   `json:"failures,omitempty"`
}

// AnalysisResult is the outcome of analyzing one corpus input.
type AnalysisResult struct {
	Entry KnowledgeEntry
	Err   error
}

// Assemble builds a knowledge base from per-input results, preserving corpus
// order and recording failed inputs as skipped.
func Assemble(corpus []string, results []AnalysisResult) *KnowledgeBase {
	kb := &KnowledgeBase{Entries: make([]KnowledgeEntry, 0, len(results))}
	for i, r := range results {
		if r.Err != nil {
			kb.Skipped++
			kb.Failures = append(kb.Failures, QueryFailure{Index: i, SQL: corpus[i], Error: r.Err.Error()})
			continue
		}
		kb.Entries = append(kb.Entries, r.Entry)
	}
	return kb
}

type stringSet map[string]struct{}

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
