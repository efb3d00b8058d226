package rules

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/guillermoBallester/sqlmine/internal/core/port"
)

// ExcludingSampler decorates a ColumnSampler, refusing columns the rules
// exclude from sampling before any query reaches the database.
type ExcludingSampler struct {
	inner port.ColumnSampler
	rules *Rules
}

func NewExcludingSampler(inner port.ColumnSampler, r *Rules) *ExcludingSampler {
	return &ExcludingSampler{inner: inner, rules: r}
}

func (s *ExcludingSampler) SampleColumn(ctx context.Context, table, column string, limit int) ([]string, error) {
	if s.rules.Excluded(table, column) {
		return nil, fmt.Errorf("%w: %s.%s", domain.ErrExcluded, table, column)
	}
	return s.inner.SampleColumn(ctx, table, column, limit)
}
