package port

import "github.com/guillermoBallester/sqlmine/internal/core/domain"

// Tokenizer lexes a SQL string into a grouped token tree.
type Tokenizer interface {
	Tokenize(sql string) (*domain.Node, error)
}
