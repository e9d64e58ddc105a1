package pipeline

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"time"
)

// RetryableError marks a failure worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is worth retrying. Editors that save by
// rename leave a short window in which the file does not exist.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr) || errors.Is(err, fs.ErrNotExist)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 50 * time.Millisecond
	if base > 2*time.Second {
		base = 2 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

const MaxRetries = 3
