package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	errLocked := errors.New("database is locked")
	errSyntax := errors.New("near \"SELEC\": syntax error")

	tests := []struct {
		name         string
		maxRetries   int
		failures     []error
		wantAttempts int
		wantErr      error
		wantSleeps   []time.Duration
	}{
		{
			name:         "first try succeeds",
			maxRetries:   3,
			wantAttempts: 1,
		},
		{
			name:         "one transient failure",
			maxRetries:   3,
			failures:     []error{errLocked},
			wantAttempts: 2,
			wantSleeps:   []time.Duration{time.Second},
		},
		{
			name:         "non retryable failure stops immediately",
			maxRetries:   3,
			failures:     []error{errSyntax},
			wantAttempts: 1,
			wantErr:      errSyntax,
		},
		{
			name:         "retries exhausted",
			maxRetries:   2,
			failures:     []error{errLocked, errLocked, errLocked},
			wantAttempts: 3,
			wantErr:      errLocked,
			wantSleeps:   []time.Duration{time.Second, 2 * time.Second},
		},
		{
			name:         "zero retries",
			maxRetries:   0,
			failures:     []error{errLocked},
			wantAttempts: 1,
			wantErr:      errLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sleeps []time.Duration
			policy := RetryPolicy{
				MaxRetries: tt.maxRetries,
				Backoff:    time.Second,
				Sleep:      func(d time.Duration) { sleeps = append(sleeps, d) },
			}

			got, attempts, err := Retry(policy, IsContentionError, func(attempt int) (string, error) {
				if attempt < len(tt.failures) {
					return "", tt.failures[attempt]
				}
				return "done", nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			assert.Equal(t, tt.wantSleeps, sleeps)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "done", got)
		})
	}
}

func TestIsContentionError(t *testing.T) {
	assert.True(t, IsContentionError(errors.New("database is locked")))
	assert.True(t, IsContentionError(errors.New("database table is LOCKED")))
	assert.True(t, IsContentionError(errors.New("SQLITE_BUSY")))
	assert.False(t, IsContentionError(errors.New("no such table: ZVISIT")))
	assert.False(t, IsContentionError(nil))
}
