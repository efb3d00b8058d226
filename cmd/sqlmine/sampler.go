package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/sqlmine/internal/adapter/postgres"
	"github.com/guillermoBallester/sqlmine/internal/adapter/rules"
	"github.com/guillermoBallester/sqlmine/internal/adapter/sqldb"
	"github.com/guillermoBallester/sqlmine/internal/config"
	"github.com/guillermoBallester/sqlmine/internal/core/port"
)

// openSampler connects to the configured database and returns a sampler
// that honors the rules' exclusions, plus a function releasing the pool.
func (a *app) openSampler(ctx context.Context) (port.ColumnSampler, func(), error) {
	cfg := a.cfg
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	var (
		sampler port.ColumnSampler
		closeFn func()
	)

	switch cfg.Dialect {
	case config.DialectPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:          cfg.PoolMaxConns,
			MinConns:          cfg.PoolMinConns,
			MaxConnLifetime:   cfg.PoolMaxConnLifetime,
			CloudSQLInstance:  cfg.CloudSQLInstance,
			CloudSQLPrivateIP: cfg.CloudSQLPrivateIP,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		sampler = postgres.NewSampler(pool.Pool, cfg.QueryTimeout)
		closeFn = pool.Close

	default:
		dialect, err := sqldb.Lookup(cfg.Dialect)
		if err != nil {
			return nil, nil, err
		}
		db, err := sqldb.Open(ctx, dialect, cfg.DatabaseURL, sqldb.Options{
			MaxOpenConns:      int(cfg.PoolMaxConns),
			MaxIdleConns:      int(cfg.PoolMinConns),
			ConnMaxLifetime:   cfg.PoolMaxConnLifetime,
			CloudSQLInstance:  cfg.CloudSQLInstance,
			CloudSQLPrivateIP: cfg.CloudSQLPrivateIP,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		sampler = sqldb.NewSampler(db.DB, dialect, cfg.QueryTimeout)
		closeFn = func() { _ = db.Close() }
	}

	a.logger.Info("database pool connected",
		slog.String("db.system", cfg.Dialect),
		slog.String("db.dsn", redactDSN(cfg.DatabaseURL)),
		slog.Bool("cloudsql", cfg.CloudSQLInstance != ""),
	)

	return rules.NewExcludingSampler(sampler, a.rules), closeFn, nil
}
