package domain

import "errors"

var (
	// ErrTokenize is returned when a query cannot be lexed.
	ErrTokenize = errors.New("tokenization failed")
	// ErrEmptyQuery is returned for input holding no SQL tokens.
	ErrEmptyQuery = errors.New("empty query")
	// ErrNotFound is returned when a sampled table or column does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidIdentifier is returned for table or column names that cannot be quoted safely.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrExcluded is returned when a column is excluded from sampling by rules.
	ErrExcluded = errors.New("column excluded from sampling")
)

// QueryFailure records a corpus input that was skipped.
type QueryFailure struct {
	Index int    `json:"index"`
	SQL   string `json:"sql"`
	Error string `json:"error"`
}
