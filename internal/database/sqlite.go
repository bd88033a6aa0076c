package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Defaults for the read client.
const (
	DefaultBusyTimeout  = 3000 * time.Millisecond
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 50 * time.Millisecond
)

// Config holds database configuration
type Config struct {
	Path         string
	BusyTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Row is one result row keyed by column name. Values are the driver's
// native types: int64, float64, string, []byte or nil.
type Row map[string]any

// DatabaseReadError wraps a failed read together with the number of
// attempts spent on it.
type DatabaseReadError struct {
	Attempts int
	Err      error
}

func (e *DatabaseReadError) Error() string {
	return fmt.Sprintf("sqlite read failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *DatabaseReadError) Unwrap() error { return e.Err }

// SQLiteReadClient runs read-only queries against a SQLite file that another
// process may be writing. Every query opens its own connection, so no lock
// or transaction is held between calls.
type SQLiteReadClient struct {
	path         string
	dsn          string
	busyTimeout  time.Duration
	maxRetries   int
	retryBackoff time.Duration

	sleep       func(time.Duration)
	executeOnce func(ctx context.Context, query string, args []any) ([]Row, error)
}

// NewSQLiteReadClient creates a read client for cfg.Path. Zero values in cfg
// fall back to the package defaults; a negative MaxRetries disables retries.
func NewSQLiteReadClient(cfg Config) (*SQLiteReadClient, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	c := &SQLiteReadClient{
		path:         absPath,
		dsn:          readOnlyDSN(absPath),
		busyTimeout:  cfg.BusyTimeout,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		sleep:        time.Sleep,
	}
	if c.busyTimeout <= 0 {
		c.busyTimeout = DefaultBusyTimeout
	}
	if c.maxRetries == 0 {
		c.maxRetries = DefaultMaxRetries
	} else if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = DefaultRetryBackoff
	}
	c.executeOnce = c.queryOnce
	return c, nil
}

// Path returns the absolute database path
func (c *SQLiteReadClient) Path() string {
	return c.path
}

// Query executes a read query and returns all rows. Lock contention is
// retried with linear backoff; any other failure, or exhausting the
// retries, returns a *DatabaseReadError.
func (c *SQLiteReadClient) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	policy := RetryPolicy{
		MaxRetries: c.maxRetries,
		Backoff:    c.retryBackoff,
		Sleep:      c.sleep,
	}
	rows, attempts, err := Retry(policy, IsContentionError, func(int) ([]Row, error) {
		return c.executeOnce(ctx, query, args)
	})
	if err != nil {
		return nil, &DatabaseReadError{Attempts: attempts, Err: err}
	}
	return rows, nil
}

func (c *SQLiteReadClient) queryOnce(ctx context.Context, query string, args []any) ([]Row, error) {
	db, err := sql.Open("sqlite", c.dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	// PRAGMAs are per connection, so pin one.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", c.busyTimeout.Milliseconds())); err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// readOnlyDSN builds a SQLite URI that opens path without write access.
func readOnlyDSN(path string) string {
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(path),
		RawQuery: "mode=ro",
	}
	return u.String()
}
