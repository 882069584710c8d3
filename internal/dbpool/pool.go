// Package dbpool provides the database handle for the CBDB store.
//
// The CBDB distribution is a SQLite file, opened through modernc.org/sqlite.
// A PostgreSQL copy of the same schema is reached through the pgx stdlib
// driver. Queries are written with '?' placeholders and rebound per dialect.
package dbpool

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "modernc.org/sqlite"             // registers the "sqlite" database/sql driver
)

// Dialect identifies the SQL engine behind a DB.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Options tunes the connection pool.
type Options struct {
	MaxConns int
}

// DB wraps a *sql.DB with its dialect.
// The underlying handle is unexported so callers go through the query
// helpers, which rebind placeholders for the active dialect.
type DB struct {
	db      *sql.DB
	dialect Dialect
	dsn     string
}

// ParseDatabaseURL resolves a DATABASE_URL into a driver name, DSN and dialect.
// Accepted forms: postgres://..., postgresql://..., sqlite:///path, sqlite://path, file:path, or a bare path.
func ParseDatabaseURL(raw string) (driver, dsn string, dialect Dialect, err error) {
	if raw == "" {
		return "", "", "", fmt.Errorf("database url is empty")
	}

	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return "pgx", raw, DialectPostgres, nil
	case strings.HasPrefix(raw, "sqlite://"):
		u, perr := url.Parse(raw)
		if perr != nil {
			return "", "", "", fmt.Errorf("parsing sqlite url: %w", perr)
		}

		path := u.Host + u.Path
		if path == "" {
			return "", "", "", fmt.Errorf("sqlite url has no path")
		}

		return "sqlite", sqliteDSN(path, u.RawQuery), DialectSQLite, nil
	case strings.HasPrefix(raw, "file:"):
		return "sqlite", raw, DialectSQLite, nil
	case strings.Contains(raw, "://"):
		return "", "", "", fmt.Errorf("unsupported database url scheme in %q", raw)
	default:
		return "sqlite", sqliteDSN(raw, ""), DialectSQLite, nil
	}
}

// sqliteDSN builds a modernc DSN with a busy timeout unless the caller supplied its own query.
func sqliteDSN(path, rawQuery string) string {
	q := "_pragma=busy_timeout(5000)"
	if rawQuery != "" {
		q = rawQuery
	}

	return "file:" + path + "?" + q
}

// Open connects to the database named by databaseURL and pings it.
func Open(ctx context.Context, databaseURL string, opts Options) (*DB, error) {
	driver, dsn, dialect, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	return OpenDSN(ctx, driver, dsn, dialect, opts)
}

// OpenDSN connects with an explicit driver and DSN.
func OpenDSN(ctx context.Context, driver, dsn string, dialect Dialect, opts Options) (*DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", dialect, err)
	}

	maxConns := opts.MaxConns
	if maxConns <= 0 {
		maxConns = 8
	}

	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best-effort close on setup failure.

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{db: sqlDB, dialect: dialect, dsn: dsn}, nil
}

// Dialect returns the SQL dialect of the connection.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// SQL returns the underlying *sql.DB (for migrations).
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Rebind converts '?' placeholders to the dialect's native form.
func (d *DB) Rebind(query string) string {
	return Rebind(d.dialect, query)
}

// Rebind converts '?' placeholders to $1..$n for PostgreSQL; SQLite is unchanged.
// Question marks inside single-quoted literals are left alone.
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	inQuote := false

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}

	return b.String()
}

// QueryContext executes a query that returns rows.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, d.Rebind(query), args...)
}

// QueryRowContext executes a query that returns at most one row.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.db.QueryRowContext(ctx, d.Rebind(query), args...)
}

// ExecContext executes a statement that returns no rows.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.Rebind(query), args...)
}

// HealthCheck verifies database connectivity by executing a simple query.
func (d *DB) HealthCheck(ctx context.Context) error {
	var result int

	if err := d.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("health check query: %w", err)
	}

	return nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}
