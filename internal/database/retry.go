package database

import (
	"strings"
	"time"
)

// RetryPolicy bounds a retried operation. Attempt i (zero based) that fails
// with a retryable error sleeps Backoff*(i+1) before the next attempt.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	Sleep      func(time.Duration)
}

// Retry runs fn until it succeeds, fails with an error rejected by
// retryable, or MaxRetries retries have been spent. It returns the result,
// the number of attempts made and the last error.
func Retry[T any](policy RetryPolicy, retryable func(error) bool, fn func(attempt int) (T, error)) (T, int, error) {
	sleep := policy.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var zero T
	for attempt := 0; ; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			return result, attempt + 1, nil
		}
		if attempt >= maxRetries || retryable == nil || !retryable(err) {
			return zero, attempt + 1, err
		}
		sleep(policy.Backoff * time.Duration(attempt+1))
	}
}

// IsContentionError reports whether err is SQLite lock contention
// ("database is locked", "database table is locked", SQLITE_BUSY).
func IsContentionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}
