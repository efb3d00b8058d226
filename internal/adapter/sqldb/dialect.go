// Package sqldb samples column values through database/sql for the engines
// served by a database/sql driver rather than pgx.
package sqldb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	mssql "github.com/microsoft/go-mssqldb"
)

// Dialect names accepted by Lookup.
const (
	MySQL     = "mysql"
	SQLServer = "sqlserver"
	SQLite    = "sqlite"
)

// Dialect captures the per-engine SQL differences needed for sampling.
type Dialect struct {
	Name   string
	Driver string

	quote    func(string) string
	sample   func(col, tbl string) string
	notFound func(error) bool
}

var dialects = map[string]Dialect{
	MySQL: {
		Name:   MySQL,
		Driver: "mysql",
		quote:  func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		sample: func(col, tbl string) string {
			return fmt.Sprintf("SELECT v FROM (SELECT DISTINCT CAST(%s AS CHAR) AS v FROM %s WHERE %s IS NOT NULL) AS s ORDER BY RAND() LIMIT ?", col, tbl, col)
		},
		notFound: func(err error) bool {
			var myErr *mysql.MySQLError
			// 1146: no such table, 1054: unknown column.
			return errors.As(err, &myErr) && (myErr.Number == 1146 || myErr.Number == 1054)
		},
	},
	SQLServer: {
		Name:   SQLServer,
		Driver: "sqlserver",
		quote:  func(s string) string { return "[" + strings.ReplaceAll(s, "]", "]]") + "]" },
		sample: func(col, tbl string) string {
			return fmt.Sprintf("SELECT TOP (@p1) v FROM (SELECT DISTINCT CAST(%s AS NVARCHAR(4000)) AS v FROM %s WHERE %s IS NOT NULL) AS s ORDER BY NEWID()", col, tbl, col)
		},
		notFound: func(err error) bool {
			var msErr mssql.Error
			// 208: invalid object name, 207: invalid column name.
			return errors.As(err, &msErr) && (msErr.Number == 208 || msErr.Number == 207)
		},
	},
	SQLite: {
		Name:   SQLite,
		Driver: "sqlite",
		quote:  func(s string) string { return `"` + strings.ReplaceAll(s, `"`, `""`) + `"` },
		sample: func(col, tbl string) string {
			return fmt.Sprintf("SELECT v FROM (SELECT DISTINCT CAST(%s AS TEXT) AS v FROM %s WHERE %s IS NOT NULL) AS s ORDER BY RANDOM() LIMIT ?", col, tbl, col)
		},
		notFound: func(err error) bool {
			msg := err.Error()
			return strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column")
		},
	},
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported dialect %q", name)
	}
	return d, nil
}
