package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/rond-timeline/internal/testutil"
)

func newDemoClient(t *testing.T, cfg Config) (*SQLiteReadClient, *testutil.CoreDataDB) {
	t.Helper()
	store := testutil.NewCoreDataDB(t)
	store.Exec(`CREATE TABLE demo (value TEXT)`)
	store.Exec(`INSERT INTO demo (value) VALUES ('ok')`)

	cfg.Path = store.Path
	client, err := NewSQLiteReadClient(cfg)
	require.NoError(t, err)
	return client, store
}

func TestNewSQLiteReadClientDefaults(t *testing.T) {
	client, err := NewSQLiteReadClient(Config{Path: "relative.sqlite"})
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(client.Path()))
	assert.Equal(t, DefaultBusyTimeout, client.busyTimeout)
	assert.Equal(t, DefaultMaxRetries, client.maxRetries)
	assert.Equal(t, DefaultRetryBackoff, client.retryBackoff)
	assert.Contains(t, client.dsn, "mode=ro")

	_, err = NewSQLiteReadClient(Config{})
	assert.Error(t, err)
}

func TestQueryReturnsRows(t *testing.T) {
	client, _ := newDemoClient(t, Config{})

	rows, err := client.Query(context.Background(), `SELECT value FROM demo WHERE value = ?`, "ok")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0]["value"])
}

func TestQueryRejectsWrites(t *testing.T) {
	client, _ := newDemoClient(t, Config{})

	_, err := client.Query(context.Background(), `INSERT INTO demo (value) VALUES ('nope')`)
	require.Error(t, err)

	var readErr *DatabaseReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, 1, readErr.Attempts)
}

func TestQueryRetriesWhenLocked(t *testing.T) {
	client, _ := newDemoClient(t, Config{MaxRetries: 3, RetryBackoff: 10 * time.Millisecond})

	var sleeps []time.Duration
	client.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	calls := 0
	original := client.executeOnce
	client.executeOnce = func(ctx context.Context, query string, args []any) ([]Row, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("database is locked")
		}
		return original(ctx, query, args)
	}

	rows, err := client.Query(context.Background(), `SELECT value FROM demo LIMIT 1`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rows[0]["value"])
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeps)
}

func TestQueryGivesUpAfterMaxRetries(t *testing.T) {
	client, _ := newDemoClient(t, Config{MaxRetries: 3, RetryBackoff: 50 * time.Millisecond})

	var sleeps []time.Duration
	client.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	client.executeOnce = func(context.Context, string, []any) ([]Row, error) {
		return nil, errors.New("SQLITE_BUSY: database is busy")
	}

	_, err := client.Query(context.Background(), `SELECT 1`)
	require.Error(t, err)

	var readErr *DatabaseReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, 4, readErr.Attempts)
	assert.Contains(t, err.Error(), "after 4 attempt(s)")
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 150 * time.Millisecond}, sleeps)
}

func TestQueryDoesNotRetryOtherErrors(t *testing.T) {
	client, _ := newDemoClient(t, Config{})

	slept := false
	client.sleep = func(time.Duration) { slept = true }

	_, err := client.Query(context.Background(), `SELECT * FROM missing`)
	require.Error(t, err)

	var readErr *DatabaseReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, 1, readErr.Attempts)
	assert.Contains(t, readErr.Err.Error(), "missing")
	assert.False(t, slept)
}

func TestQueryMissingFile(t *testing.T) {
	client, err := NewSQLiteReadClient(Config{Path: filepath.Join(t.TempDir(), "absent.sqlite")})
	require.NoError(t, err)

	_, err = client.Query(context.Background(), `SELECT 1`)
	var readErr *DatabaseReadError
	assert.ErrorAs(t, err, &readErr)
}
