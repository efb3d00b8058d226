package domain

import "strings"

// DefaultCorpusSeparator delimits statements in a corpus blob.
const DefaultCorpusSeparator = "-- SQL_SEPARATOR --"

// SplitCorpus splits blob on the literal separator, trimming each statement
// and dropping empty ones.
func SplitCorpus(blob, separator string) []string {
	if separator == "" {
		separator = DefaultCorpusSeparator
	}
	var out []string
	for _, q := range strings.Split(blob, separator) {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
