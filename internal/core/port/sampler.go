package port

import "context"

// ColumnSampler fetches distinct, non-null values of one column in random
// order, rendered as text. Implementations must only read.
type ColumnSampler interface {
	SampleColumn(ctx context.Context, table, column string, limit int) ([]string, error)
}
