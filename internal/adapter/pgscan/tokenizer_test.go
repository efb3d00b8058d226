package pgscan

import (
	"testing"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaf struct {
	kind domain.Kind
	text string
}

func leavesOf(t *testing.T, sql string) []leaf {
	t.Helper()
	tree, err := NewTokenizer().Tokenize(sql)
	require.NoError(t, err)
	var out []leaf
	for _, l := range domain.Leaves(tree) {
		out = append(out, leaf{l.Kind, l.Text})
	}
	return out
}

func TestTokenize_Classification(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "SELECT name, * FROM users WHERE id >= $1 AND note = 'x' AND n <> 2.5")

	assert.Equal(t, []leaf{
		{domain.KindDML, "SELECT"},
		{domain.KindName, "name"},
		{domain.KindPunctuation, ","},
		{domain.KindWildcard, "*"},
		{domain.KindKeyword, "FROM"},
		{domain.KindName, "users"},
		{domain.KindKeyword, "WHERE"},
		{domain.KindName, "id"},
		{domain.KindOperator, ">="},
		{domain.KindPlaceholder, "$1"},
		{domain.KindKeyword, "AND"},
		{domain.KindName, "note"},
		{domain.KindOperator, "="},
		{domain.KindLiteral, "'x'"},
		{domain.KindKeyword, "AND"},
		{domain.KindName, "n"},
		{domain.KindOperator, "<>"},
		{domain.KindLiteral, "2.5"},
	}, got)
}

func TestTokenize_MultiplyIsNotWildcard(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "SELECT a * 2 FROM t")

	assert.Equal(t, leaf{domain.KindOperator, "*"}, got[2])
}

func TestTokenize_QuestionMarkPlaceholders(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "SELECT a FROM t WHERE id=? AND b IN (?,?)")

	var placeholders int
	for _, l := range got {
		if l.kind == domain.KindPlaceholder {
			assert.Equal(t, "?", l.text)
			placeholders++
		}
	}
	assert.Equal(t, 3, placeholders)
	assert.Contains(t, got, leaf{domain.KindOperator, "="})
}

func TestTokenize_FormatVerbPlaceholder(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "SELECT a FROM t WHERE id = %s")

	assert.Equal(t, leaf{domain.KindPlaceholder, "%s"}, got[len(got)-1])
}

func TestTokenize_SignedNumber(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "SELECT a - 1, -2 FROM t WHERE x = -3")

	assert.Contains(t, got, leaf{domain.KindLiteral, "-2"})
	assert.Contains(t, got, leaf{domain.KindLiteral, "-3"})
	assert.Contains(t, got, leaf{domain.KindOperator, "-"})
}

func TestTokenize_TemplateAndBacktickNames(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "SELECT `id` FROM {table_name} WHERE x = '{not a name}'")

	assert.Contains(t, got, leaf{domain.KindName, "`id`"})
	assert.Contains(t, got, leaf{domain.KindName, "{table_name}"})
	assert.Contains(t, got, leaf{domain.KindLiteral, "'{not a name}'"})
}

func TestTokenize_UnreservedKeywordsAreNames(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "SELECT level, type FROM events ORDER BY level NULLS LAST")

	assert.Equal(t, leaf{domain.KindName, "level"}, got[1])
	assert.Equal(t, leaf{domain.KindName, "type"}, got[3])
	assert.Contains(t, got, leaf{domain.KindKeyword, "ORDER BY"})
	assert.Contains(t, got, leaf{domain.KindKeyword, "NULLS"})
}

func TestTokenize_CommentsDropped(t *testing.T) {
	t.Parallel()
	got := leavesOf(t, "/* header */ SELECT 1 -- trailing")

	assert.Equal(t, []leaf{{domain.KindDML, "SELECT"}, {domain.KindLiteral, "1"}}, got)
}

func TestTokenize_Errors(t *testing.T) {
	t.Parallel()
	tok := NewTokenizer()

	_, err := tok.Tokenize("SELECT 'unterminated")
	assert.ErrorIs(t, err, domain.ErrTokenize)

	_, err = tok.Tokenize("")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)

	_, err = tok.Tokenize("-- nothing here")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestQuoteTemplates(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"SELECT `a` FROM `b`", `SELECT "a" FROM "b"`},
		{"FROM {t}", `FROM "t"`},
		{"WHERE x = '`a`'", "WHERE x = '`a`'"},
		{`SELECT "{a}"`, `SELECT "{a}"`},
		{"SELECT '{' || x || '}'", "SELECT '{' || x || '}'"},
		{"SELECT {a b", "SELECT {a b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := quoteTemplates(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.in))
		})
	}
}

func TestSplitOperator(t *testing.T) {
	t.Parallel()
	parts := splitOperator("=?", 10)
	require.Len(t, parts, 2)
	assert.Equal(t, "=", parts[0].Text)
	assert.Equal(t, 10, parts[0].Start)
	assert.Equal(t, "?", parts[1].Text)
	assert.Equal(t, 11, parts[1].Start)

	kept := splitOperator("?|", 0)
	require.Len(t, kept, 1)
	assert.Equal(t, domain.KindOperator, kept[0].Kind)
}
