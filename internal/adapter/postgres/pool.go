package postgres

import (
	"context"
	"fmt"
	"net"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the connection pool. Zero values keep pgxpool defaults.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// CloudSQLInstance, when set, routes connections through the Cloud SQL
	// connector ("project:region:instance") instead of the URL's host.
	CloudSQLInstance  string
	CloudSQLPrivateIP bool
}

// Pool is a pgx pool plus the Cloud SQL dialer backing it, if any.
type Pool struct {
	*pgxpool.Pool
	dialer *cloudsqlconn.Dialer
}

func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	var dialer *cloudsqlconn.Dialer
	if opts.CloudSQLInstance != "" {
		var dopts []cloudsqlconn.Option
		if opts.CloudSQLPrivateIP {
			dopts = append(dopts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
		}
		dialer, err = cloudsqlconn.NewDialer(ctx, dopts...)
		if err != nil {
			return nil, fmt.Errorf("creating cloud sql dialer: %w", err)
		}
		instance := opts.CloudSQLInstance
		config.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, instance)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		closeDialer(dialer)
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		closeDialer(dialer)
		return nil, fmt.Errorf("pinging database (10s timeout): %w", err)
	}

	return &Pool{Pool: pool, dialer: dialer}, nil
}

// Close releases pooled connections and the dialer.
func (p *Pool) Close() {
	p.Pool.Close()
	closeDialer(p.dialer)
}

func closeDialer(d *cloudsqlconn.Dialer) {
	if d != nil {
		_ = d.Close()
	}
}
