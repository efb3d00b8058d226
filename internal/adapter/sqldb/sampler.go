package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
)

// Sampler reads distinct column values with a single bounded SELECT.
type Sampler struct {
	db           *sql.DB
	dialect      Dialect
	queryTimeout time.Duration
}

func NewSampler(db *sql.DB, dialect Dialect, queryTimeout time.Duration) *Sampler {
	return &Sampler{db: db, dialect: dialect, queryTimeout: queryTimeout}
}

func (s *Sampler) SampleColumn(ctx context.Context, table, column string, limit int) ([]string, error) {
	query, err := s.sampleQuery(table, column)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, s.classify(err, table, column)
	}
	defer rows.Close()

	values := make([]string, 0, limit)
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s.%s: %w", table, column, err)
		}
		if v.Valid {
			values = append(values, v.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, s.classify(err, table, column)
	}
	return values, nil
}

func (s *Sampler) sampleQuery(table, column string) (string, error) {
	tbl, err := s.quoteQualified(table)
	if err != nil {
		return "", err
	}
	col, err := s.quoteQualified(column)
	if err != nil {
		return "", err
	}
	return s.dialect.sample(col, tbl), nil
}

// quoteQualified quotes each dot-separated part with the dialect's quoting.
func (s *Sampler) quoteQualified(name string) (string, error) {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		p = domain.Unquote(strings.TrimSpace(p))
		if p == "" || strings.ContainsRune(p, 0) {
			return "", fmt.Errorf("%w: %q", domain.ErrInvalidIdentifier, name)
		}
		parts[i] = s.dialect.quote(p)
	}
	return strings.Join(parts, "."), nil
}

func (s *Sampler) classify(err error, table, column string) error {
	if s.dialect.notFound(err) {
		return fmt.Errorf("%w: %s.%s: %s", domain.ErrNotFound, table, column, err.Error())
	}
	return fmt.Errorf("sampling %s.%s: %w", table, column, err)
}
