package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Options tunes the database/sql pool. Zero values keep driver defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// CloudSQLInstance routes MySQL and SQL Server connections through the
	// Cloud SQL connector.
	CloudSQLInstance  string
	CloudSQLPrivateIP bool
}

// DB is a database/sql handle plus whatever the connection needs released.
type DB struct {
	*sql.DB
	Dialect Dialect
	cleanup func()
}

// Open connects to dsn with the driver for dialect and pings it.
func Open(ctx context.Context, dialect Dialect, dsn string, opts Options) (*DB, error) {
	var (
		db      *sql.DB
		cleanup = func() {}
		err     error
	)

	if opts.CloudSQLInstance != "" {
		db, cleanup, err = openCloudSQL(ctx, dialect, dsn, opts)
	} else {
		db, err = sql.Open(dialect.Driver, dsn)
	}
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		cleanup()
		return nil, fmt.Errorf("pinging %s database (10s timeout): %w", dialect.Name, err)
	}

	return &DB{DB: db, Dialect: dialect, cleanup: cleanup}, nil
}

// Close closes the pool and releases any dialer.
func (d *DB) Close() error {
	err := d.DB.Close()
	d.cleanup()
	return err
}

func openCloudSQL(ctx context.Context, dialect Dialect, dsn string, opts Options) (*sql.DB, func(), error) {
	var dialOpts []cloudsqlconn.DialOption
	if opts.CloudSQLPrivateIP {
		dialOpts = append(dialOpts, cloudsqlconn.WithPrivateIP())
	}
	instance := opts.CloudSQLInstance

	switch dialect.Name {
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing mysql DSN: %w", err)
		}
		d, err := cloudsqlconn.NewDialer(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating cloud sql dialer: %w", err)
		}
		network := "cloudsql-" + instance
		mysql.RegisterDialContext(network, func(ctx context.Context, _ string) (net.Conn, error) {
			return d.Dial(ctx, instance, dialOpts...)
		})
		cfg.Net = network
		cfg.Addr = instance
		cleanup := func() {
			mysql.DeregisterDialContext(network)
			_ = d.Close()
		}
		db, err := sql.Open(dialect.Driver, cfg.FormatDSN())
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("opening mysql: %w", err)
		}
		return db, cleanup, nil

	case SQLServer:
		connector, err := mssql.NewConnector(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing sqlserver DSN: %w", err)
		}
		d, err := cloudsqlconn.NewDialer(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("creating cloud sql dialer: %w", err)
		}
		connector.Dialer = &cloudSQLDialer{dialer: d, instance: instance, opts: dialOpts}
		return sql.OpenDB(connector), func() { _ = d.Close() }, nil
	}

	return nil, nil, fmt.Errorf("cloud sql connector is not supported for dialect %q", dialect.Name)
}

// cloudSQLDialer adapts the Cloud SQL dialer to the mssql.Dialer interface.
type cloudSQLDialer struct {
	dialer   *cloudsqlconn.Dialer
	instance string
	opts     []cloudsqlconn.DialOption
}

func (c *cloudSQLDialer) DialContext(ctx context.Context, _, _ string) (net.Conn, error) {
	return c.dialer.Dial(ctx, c.instance, c.opts...)
}
