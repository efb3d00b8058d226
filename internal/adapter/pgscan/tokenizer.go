// Package pgscan lexes SQL with the PostgreSQL scanner and groups the tokens
// into a domain token tree.
package pgscan

import (
	"fmt"
	"strings"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Tokenizer implements port.Tokenizer. It is lexical only, so statements in
// other dialects tokenize as long as their quoting is balanced.
type Tokenizer struct{}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

var dmlKeywords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
}

// Unreserved keywords that still delimit clauses. Any other unreserved or
// column-name keyword is treated as a plain name.
var clauseKeywords = map[string]bool{
	"BY": true, "SET": true, "VALUES": true, "NULLS": true, "FIRST": true, "LAST": true,
	"OVER": true, "PARTITION": true, "ROWS": true, "RANGE": true, "BETWEEN": true,
	"EXISTS": true, "RECURSIVE": true, "PRECEDING": true, "FOLLOWING": true, "UNBOUNDED": true,
}

var punctuation = map[string]bool{
	"(": true, ")": true, ",": true, ";": true, ".": true, "[": true, "]": true, ":": true,
}

// Tokenize lexes sql and returns its grouped token tree. Comments are dropped.
func (t *Tokenizer) Tokenize(sql string) (*domain.Node, error) {
	res, err := pg_query.Scan(quoteTemplates(sql))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTokenize, err)
	}

	leaves := make([]*domain.Node, 0, len(res.GetTokens()))
	toks := res.GetTokens()
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		start, end := int(tok.GetStart()), int(tok.GetEnd())
		if start < 0 || end > len(sql) || start > end {
			return nil, fmt.Errorf("%w: token offset %d:%d out of range", domain.ErrTokenize, start, end)
		}
		text := sql[start:end]

		switch tok.GetToken() {
		case pg_query.Token_SQL_COMMENT, pg_query.Token_C_COMMENT:
			continue
		case pg_query.Token_IDENT, pg_query.Token_UIDENT:
			leaves = append(leaves, domain.NewLeaf(domain.KindName, text, start, end))
			continue
		case pg_query.Token_SCONST, pg_query.Token_USCONST, pg_query.Token_BCONST,
			pg_query.Token_XCONST, pg_query.Token_FCONST, pg_query.Token_ICONST:
			leaves = append(leaves, domain.NewLeaf(domain.KindLiteral, text, start, end))
			continue
		case pg_query.Token_PARAM:
			leaves = append(leaves, domain.NewLeaf(domain.KindPlaceholder, text, start, end))
			continue
		case pg_query.Token_Op:
			leaves = append(leaves, splitOperator(text, start)...)
			continue
		case pg_query.Token_TYPECAST, pg_query.Token_LESS_EQUALS, pg_query.Token_GREATER_EQUALS,
			pg_query.Token_NOT_EQUALS, pg_query.Token_DOT_DOT, pg_query.Token_COLON_EQUALS,
			pg_query.Token_EQUALS_GREATER:
			leaves = append(leaves, domain.NewLeaf(domain.KindOperator, text, start, end))
			continue
		}

		if tok.GetKeywordKind() != pg_query.KeywordKind_NO_KEYWORD {
			leaves = append(leaves, domain.NewLeaf(keywordKind(text, tok.GetKeywordKind()), text, start, end))
			continue
		}

		switch {
		case text == "-" && i+1 < len(toks) && signedNumber(toks[i+1], end, leaves):
			next := int(toks[i+1].GetEnd())
			leaves = append(leaves, domain.NewLeaf(domain.KindLiteral, sql[start:next], start, next))
			i++
		case text == "%" && i+1 < len(toks) && formatVerb(sql, toks[i+1], end):
			next := int(toks[i+1].GetEnd())
			leaves = append(leaves, domain.NewLeaf(domain.KindPlaceholder, sql[start:next], start, next))
			i++
		case text == "*" && wildcardPosition(leaves):
			leaves = append(leaves, domain.NewLeaf(domain.KindWildcard, text, start, end))
		case punctuation[text]:
			leaves = append(leaves, domain.NewLeaf(domain.KindPunctuation, text, start, end))
		default:
			leaves = append(leaves, domain.NewLeaf(domain.KindOperator, text, start, end))
		}
	}

	if len(leaves) == 0 {
		return nil, domain.ErrEmptyQuery
	}
	return domain.Group(sql, leaves), nil
}

func keywordKind(text string, kind pg_query.KeywordKind) domain.Kind {
	up := strings.ToUpper(text)
	switch {
	case dmlKeywords[up]:
		return domain.KindDML
	case kind == pg_query.KeywordKind_RESERVED_KEYWORD, kind == pg_query.KeywordKind_TYPE_FUNC_NAME_KEYWORD:
		return domain.KindKeyword
	case clauseKeywords[up]:
		return domain.KindKeyword
	}
	return domain.KindName
}

// splitOperator separates '?' placeholders the scanner folded into an
// operator such as "=?". Operators like the jsonb "?|" are kept whole.
func splitOperator(text string, start int) []*domain.Node {
	if !strings.Contains(text, "?") {
		return []*domain.Node{domain.NewLeaf(domain.KindOperator, text, start, start+len(text))}
	}
	rest := strings.Trim(text, "?")
	switch rest {
	case "", "=", "<", ">", "<=", ">=", "<>", "!=":
	default:
		return []*domain.Node{domain.NewLeaf(domain.KindOperator, text, start, start+len(text))}
	}

	var out []*domain.Node
	for i := 0; i < len(text); {
		if text[i] == '?' {
			out = append(out, domain.NewLeaf(domain.KindPlaceholder, "?", start+i, start+i+1))
			i++
			continue
		}
		j := i
		for j < len(text) && text[j] != '?' {
			j++
		}
		out = append(out, domain.NewLeaf(domain.KindOperator, text[i:j], start+i, start+j))
		i = j
	}
	return out
}

// signedNumber reports whether tok is a number directly after a unary minus.
func signedNumber(tok *pg_query.ScanToken, after int, leaves []*domain.Node) bool {
	switch tok.GetToken() {
	case pg_query.Token_ICONST, pg_query.Token_FCONST:
	default:
		return false
	}
	if int(tok.GetStart()) != after {
		return false
	}
	if len(leaves) == 0 {
		return true
	}
	prev := leaves[len(leaves)-1]
	switch prev.Kind {
	case domain.KindOperator, domain.KindKeyword, domain.KindDML:
		return true
	}
	return prev.IsPunct("(", ",")
}

// formatVerb reports whether tok is a printf verb name directly after '%'.
func formatVerb(sql string, tok *pg_query.ScanToken, after int) bool {
	if int(tok.GetStart()) != after || int(tok.GetEnd()) > len(sql) {
		return false
	}
	switch sql[tok.GetStart():tok.GetEnd()] {
	case "s", "d", "f":
		return true
	}
	return false
}

// wildcardPosition reports whether a '*' following leaves selects all
// columns rather than multiplying.
func wildcardPosition(leaves []*domain.Node) bool {
	if len(leaves) == 0 {
		return true
	}
	prev := leaves[len(leaves)-1]
	return prev.IsPunct("(", ",", ".") || prev.IsKeyword("SELECT", "DISTINCT", "ALL", "RETURNING")
}

// quoteTemplates rewrites `name` and {name} to "name" so the scanner sees a
// single quoted identifier. Byte offsets are preserved, so token text is
// still read from the original statement.
func quoteTemplates(sql string) string {
	b := []byte(sql)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '`':
			if j := strings.IndexByte(sql[i+1:], '`'); j >= 0 {
				b[i], b[i+1+j] = '"', '"'
				i += 1 + j
			}
		case '{':
			if j := strings.IndexAny(sql[i+1:], "}'\"\n"); j > 0 && sql[i+1+j] == '}' {
				b[i], b[i+1+j] = '"', '"'
				i += 1 + j
			}
		}
	}
	return string(b)
}
