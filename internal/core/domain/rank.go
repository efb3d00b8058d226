package domain

import "sort"

// FrequencyEntry is one distinct parameterized query shape.
type FrequencyEntry struct {
	ParameterizedForm string `json:"parameterized_form"`
	OccurrenceCount   int    `json:"occurrence_count"`
	Exemplar          string `json:"exemplar_original_query"`
}

// Rank groups the corpus by normalized form and returns the topN most
// frequent shapes, count descending with ties kept in first-seen order.
// topN <= 0 returns every shape. Inputs normalize rejects are returned as
// failures and never counted.
func Rank(corpus []string, topN int, normalize func(string) (string, error)) ([]FrequencyEntry, []QueryFailure) {
	entries := make([]FrequencyEntry, 0)
	index := make(map[string]int)
	var failures []QueryFailure

	for i, q := range corpus {
		form, err := normalize(q)
		if err != nil {
			failures = append(failures, QueryFailure{Index: i, SQL: q, Error: err.Error()})
			continue
		}
		if pos, ok := index[form]; ok {
			entries[pos].OccurrenceCount++
			continue
		}
		index[form] = len(entries)
		entries = append(entries, FrequencyEntry{ParameterizedForm: form, OccurrenceCount: 1, Exemplar: q})
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].OccurrenceCount > entries[b].OccurrenceCount
	})
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries, failures
}
