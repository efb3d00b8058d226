package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upper stands in for a normalizer: case-only differences share a form.
func upper(q string) (string, error) {
	if strings.Contains(q, "!") {
		return "", errors.New("bad query")
	}
	return strings.ToUpper(q), nil
}

func TestRank(t *testing.T) {
	t.Parallel()
	corpus := []string{"a", "b", "B", "c", "C", "c", "bad!"}

	got, failures := Rank(corpus, 0, upper)

	require.Len(t, got, 3)
	assert.Equal(t, FrequencyEntry{ParameterizedForm: "C", OccurrenceCount: 3, Exemplar: "c"}, got[0])
	assert.Equal(t, FrequencyEntry{ParameterizedForm: "B", OccurrenceCount: 2, Exemplar: "b"}, got[1])
	assert.Equal(t, FrequencyEntry{ParameterizedForm: "A", OccurrenceCount: 1, Exemplar: "a"}, got[2])

	require.Len(t, failures, 1)
	assert.Equal(t, QueryFailure{Index: 6, SQL: "bad!", Error: "bad query"}, failures[0])
}

func TestRank_TiesKeepFirstSeen(t *testing.T) {
	t.Parallel()
	got, _ := Rank([]string{"x", "y", "z", "z", "y", "x"}, 0, upper)

	require.Len(t, got, 3)
	assert.Equal(t, "X", got[0].ParameterizedForm)
	assert.Equal(t, "Y", got[1].ParameterizedForm)
	assert.Equal(t, "Z", got[2].ParameterizedForm)
}

func TestRank_TopN(t *testing.T) {
	t.Parallel()
	got, _ := Rank([]string{"a", "b", "b", "c"}, 1, upper)

	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].ParameterizedForm)
}

func TestAssemble(t *testing.T) {
	t.Parallel()
	corpus := []string{"q0", "q1", "q2"}
	results := []AnalysisResult{
		{Entry: NewKnowledgeEntry("q0")},
		{Err: ErrTokenize},
		{Entry: NewKnowledgeEntry("q2")},
	}

	kb := Assemble(corpus, results)

	require.Len(t, kb.Entries, 2)
	assert.Equal(t, "q0", kb.Entries[0].SQL)
	assert.Equal(t, "q2", kb.Entries[1].SQL)
	assert.Equal(t, 1, kb.Skipped)
	assert.Equal(t, []QueryFailure{{Index: 1, SQL: "q1", Error: ErrTokenize.Error()}}, kb.Failures)
}

func TestSplitCorpus(t *testing.T) {
	t.Parallel()
	blob := "SELECT 1\n-- SQL_SEPARATOR --\n\n  SELECT 2;  \n-- SQL_SEPARATOR --\n   \n-- SQL_SEPARATOR --"

	assert.Equal(t, []string{"SELECT 1", "SELECT 2;"}, SplitCorpus(blob, ""))
	assert.Equal(t, []string{"a", "b"}, SplitCorpus("a|||b|||", "|||"))
	assert.Empty(t, SplitCorpus("   ", DefaultCorpusSeparator))
}

func TestKnowledgeEntry_HasTable(t *testing.T) {
	t.Parallel()
	e := NewKnowledgeEntry("")
	e.Tables = []string{"a", "c"}

	assert.True(t, e.HasTable("c"))
	assert.False(t, e.HasTable("b"))
}

func TestJoinInfo_JSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(JoinInfo{Type: "LEFT JOIN", Table: "u", On: "t.id = u.id"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"LEFT JOIN","table":"u","on":"t.id = u.id"}`, string(data))

	var short, long JoinInfo
	require.NoError(t, json.Unmarshal(data, &short))
	require.NoError(t, json.Unmarshal([]byte(`{"join_type":"JOIN","table":"v","on_predicate_text":"a = b"}`), &long))
	assert.Equal(t, JoinInfo{Type: "LEFT JOIN", Table: "u", On: "t.id = u.id"}, short)
	assert.Equal(t, JoinInfo{Type: "JOIN", Table: "v", On: "a = b"}, long)
}
