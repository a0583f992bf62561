// Package sqlstore implements the repository interfaces on a SQL database.
//
// Two dialects are supported through database/sql drivers:
//
//	sqlite   → modernc.org/sqlite (pure Go, the default; ":memory:" in tests)
//	postgres → github.com/jackc/pgx/v5/stdlib
//
// Queries are written with ? placeholders and passed through sqlx's Rebind,
// so the same statements run on both.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sakif/storefront/internal/idgen"
)

// Dialect names accepted by Open.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

func init() {
	// sqlx knows "sqlite3" and "pgx" but not modernc's driver name.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB wraps a sqlx connection pool and provides every repository method.
type DB struct {
	conn    *sqlx.DB
	dialect string
	ids     idgen.Allocator
}

// Options configures Open.
type Options struct {
	Dialect   string          // "sqlite" (default) or "postgres"
	DSN       string          // file path / ":memory:" for sqlite, URL for postgres
	Allocator idgen.Allocator // defaults to idgen.Sequence
	// ConnectTimeout bounds the retried initial ping. Zero means a single attempt.
	ConnectTimeout time.Duration
}

// New opens a SQLite database at dbPath with database-assigned keys.
func New(dbPath string) (*DB, error) {
	return Open(context.Background(), Options{Dialect: DialectSQLite, DSN: dbPath})
}

// Open connects, verifies the connection and runs migrations.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.Dialect == "" {
		opts.Dialect = DialectSQLite
	}
	if opts.Allocator == nil {
		opts.Allocator = idgen.Sequence{}
	}

	var (
		conn *sqlx.DB
		err  error
	)
	switch opts.Dialect {
	case DialectSQLite:
		conn, err = openSQLite(opts.DSN)
	case DialectPostgres:
		conn, err = sqlx.Open("pgx", opts.DSN)
		if err == nil {
			conn.SetMaxOpenConns(8)
			conn.SetMaxIdleConns(2)
			conn.SetConnMaxIdleTime(5 * time.Minute)
		}
	default:
		return nil, fmt.Errorf("sqlstore: unknown dialect %q", opts.Dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}

	if err := ping(ctx, conn, opts.ConnectTimeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	if opts.Dialect == DialectSQLite && opts.DSN == ":memory:" {
		// One connection means one in-memory database, so per-connection
		// pragmas stick.
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlstore: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn, dialect: opts.Dialect, ids: opts.Allocator}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}
	return db, nil
}

func openSQLite(path string) (*sqlx.DB, error) {
	if path == ":memory:" {
		conn, err := sqlx.Open("sqlite", path)
		if err != nil {
			return nil, err
		}
		conn.SetMaxOpenConns(1)
		return conn, nil
	}

	// modernc applies _pragma parameters to every new connection in the pool.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return sqlx.Open("sqlite", dsn)
}

// ping retries with exponential backoff until timeout; databases started
// alongside the server (compose, k8s) often accept connections a few
// seconds late.
func ping(ctx context.Context, conn *sqlx.DB, timeout time.Duration) error {
	if timeout <= 0 {
		return conn.PingContext(ctx)
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = timeout
	return backoff.Retry(func() error {
		return conn.PingContext(ctx)
	}, backoff.WithContext(bo, ctx))
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Dialect returns the configured dialect name.
func (db *DB) Dialect() string {
	return db.dialect
}

// CountRows returns the number of rows in one of the allocated-key tables.
func (db *DB) CountRows(ctx context.Context, table string) (int64, error) {
	if _, err := idgen.KeyColumn(table); err != nil {
		return 0, err
	}
	var n int64
	if err := db.conn.GetContext(ctx, &n, `SELECT COUNT(*) FROM `+table); err != nil {
		return 0, storageError("counting "+table, err)
	}
	return n, nil
}

// insert runs INSERT … RETURNING <pk> against table. A zero id lets the
// database assign the key; a non-zero id (MaxPlusOne allocation) is written
// explicitly.
func (db *DB) insert(ctx context.Context, q sqlx.QueryerContext, table string, id int64, cols []string, args []any) (int64, error) {
	keyCol, err := idgen.KeyColumn(table)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		cols = append([]string{keyCol}, cols...)
		args = append([]any{id}, args...)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, strings.Join(cols, ", "), placeholders(len(cols)), keyCol,
	)

	var newID int64
	if err := q.QueryRowxContext(ctx, db.conn.Rebind(query), args...).Scan(&newID); err != nil {
		return 0, err
	}
	return newID, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// inClause expands "IN (?)" for a slice argument and rebinds the result.
func (db *DB) inClause(query string, args ...any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return db.conn.Rebind(q), a, nil
}

// withTx runs fn inside a transaction, committing on nil and rolling back
// otherwise.
func (db *DB) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	return nil
}
