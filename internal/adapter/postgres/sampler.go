package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

// Sampler reads distinct column values inside read-only transactions.
type Sampler struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

func NewSampler(pool *pgxpool.Pool, queryTimeout time.Duration) *Sampler {
	return &Sampler{pool: pool, queryTimeout: queryTimeout}
}

// SampleColumn returns up to limit distinct non-null values of table.column
// cast to text, in random order.
func (s *Sampler) SampleColumn(ctx context.Context, table, column string, limit int) ([]string, error) {
	query, err := sampleQuery(table, column)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// SET LOCAL scopes the timeout to this transaction so the server
	// cancels the scan even if the client goes away.
	timeoutMS := s.queryTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", timeoutMS)); err != nil {
		return nil, fmt.Errorf("setting statement timeout: %w", err)
	}

	rows, err := tx.Query(ctx, query, limit)
	if err != nil {
		return nil, classify(err, table, column)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(err, table, column)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return values, nil
}

func sampleQuery(table, column string) (string, error) {
	tbl, err := quoteQualified(table)
	if err != nil {
		return "", err
	}
	col, err := quoteQualified(column)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"SELECT v FROM (SELECT DISTINCT %s::text AS v FROM %s WHERE %s IS NOT NULL) AS s ORDER BY random() LIMIT $1",
		col, tbl, col,
	), nil
}

func classify(err error, table, column string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedTable, pgUndefinedColumn:
			return fmt.Errorf("%w: %s.%s: %s", domain.ErrNotFound, table, column, pgErr.Message)
		}
	}
	return fmt.Errorf("sampling %s.%s: %w", table, column, err)
}
