package main

import (
	"io"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/config"
	"github.com/spf13/pflag"
)

// flagValues holds raw global flag values. Only flags the user actually set
// become overrides, so env vars still apply to the rest.
type flagValues struct {
	databaseURL      string
	dialect          string
	cloudSQLInstance string
	logLevel         string
	queryTimeout     time.Duration
	rulesFile        string
	topN             int
	workers          int
	sampleSize       int
	transport        string
	httpAddr         string
	httpBearerToken  string
	otel             bool
	rejectLog        string

	poolMaxConns        int32
	poolMinConns        int32
	poolMaxConnLifetime time.Duration
}

func registerFlags(fs *pflag.FlagSet) *flagValues {
	f := &flagValues{}
	fs.StringVar(&f.databaseURL, "database-url", "", "Database connection string for column sampling (env: DATABASE_URL)")
	fs.StringVar(&f.dialect, "dialect", "", "Database dialect: postgres, mysql, sqlserver, sqlite (env: DB_DIALECT)")
	fs.StringVar(&f.cloudSQLInstance, "cloudsql-instance", "", "Cloud SQL instance connection name (env: CLOUDSQL_INSTANCE)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
	fs.DurationVar(&f.queryTimeout, "query-timeout", 0, "Sampling query timeout (env: QUERY_TIMEOUT)")
	fs.StringVar(&f.rulesFile, "rules-file", "", "Path to rules YAML (env: RULES_FILE)")
	fs.IntVar(&f.topN, "top", 0, "Number of query shapes to keep; 0 keeps all (env: TOP_N)")
	fs.IntVar(&f.workers, "workers", 0, "Concurrent analyzers when building (env: WORKERS)")
	fs.IntVar(&f.sampleSize, "sample-size", 0, "Distinct values sampled per column (env: SAMPLE_SIZE)")
	fs.StringVar(&f.transport, "transport", "", "MCP transport: stdio or http (env: TRANSPORT)")
	fs.StringVar(&f.httpAddr, "http-addr", "", "Listen address for HTTP transport (env: HTTP_ADDR)")
	fs.StringVar(&f.httpBearerToken, "http-bearer-token", "", "Bearer token for HTTP transport (env: HTTP_BEARER_TOKEN)")
	fs.BoolVar(&f.otel, "otel", false, "Enable OpenTelemetry tracing and metrics (env: OTEL_ENABLED)")
	fs.StringVar(&f.rejectLog, "reject-log", "", "Append skipped corpus inputs to this NDJSON file")
	fs.Int32Var(&f.poolMaxConns, "pool-max-conns", 0, "Maximum pool connections (env: POOL_MAX_CONNS)")
	fs.Int32Var(&f.poolMinConns, "pool-min-conns", 0, "Minimum pool connections (env: POOL_MIN_CONNS)")
	fs.DurationVar(&f.poolMaxConnLifetime, "pool-max-conn-lifetime", 0, "Maximum connection lifetime (env: POOL_MAX_CONN_LIFETIME)")
	return f
}

// overrides converts the flags set on fs into config overrides.
func (f *flagValues) overrides(fs *pflag.FlagSet) config.Overrides {
	var o config.Overrides
	if fs.Changed("database-url") {
		o.DatabaseURL = &f.databaseURL
	}
	if fs.Changed("dialect") {
		o.Dialect = &f.dialect
	}
	if fs.Changed("cloudsql-instance") {
		o.CloudSQLInstance = &f.cloudSQLInstance
	}
	if fs.Changed("log-level") {
		o.LogLevel = &f.logLevel
	}
	if fs.Changed("query-timeout") {
		o.QueryTimeout = &f.queryTimeout
	}
	if fs.Changed("rules-file") {
		o.RulesFile = &f.rulesFile
	}
	if fs.Changed("top") {
		o.TopN = &f.topN
	}
	if fs.Changed("workers") {
		o.Workers = &f.workers
	}
	if fs.Changed("sample-size") {
		o.SampleSize = &f.sampleSize
	}
	if fs.Changed("transport") {
		o.Transport = &f.transport
	}
	if fs.Changed("http-addr") {
		o.HTTPAddr = &f.httpAddr
	}
	if fs.Changed("http-bearer-token") {
		o.HTTPBearerToken = &f.httpBearerToken
	}
	if fs.Changed("pool-max-conns") {
		o.PoolMaxConns = &f.poolMaxConns
	}
	if fs.Changed("pool-min-conns") {
		o.PoolMinConns = &f.poolMinConns
	}
	if fs.Changed("pool-max-conn-lifetime") {
		o.PoolMaxConnLifetime = &f.poolMaxConnLifetime
	}
	o.OTelEnabled = f.otel
	o.RejectLog = f.rejectLog
	return o
}

// parseFlags parses global flags alone, outside any subcommand.
func parseFlags(args []string) (config.Overrides, error) {
	fs := pflag.NewFlagSet("sqlmine", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}
	return f.overrides(fs), nil
}
