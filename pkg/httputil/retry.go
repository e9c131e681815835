package httputil

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/matzehuels/causalcanvas/pkg/errors"
)

// RetryableError marks a transient failure (network error, 5xx, 429) that
// [Retry] should attempt again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Retry executes fn up to attempts times with exponential backoff, starting
// at delay. Only [RetryableError]s are retried. When the error carries an
// [apperrors.RateLimitedError] with a RetryAfter hint, that wait is used
// instead if it is longer.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) || i == attempts-1 {
			break
		}

		wait := delay
		var rl *apperrors.RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			wait = max(wait, time.Duration(rl.RetryAfter)*time.Second)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			delay *= 2
		}
	}
	return lastErr
}

// RetryWithBackoff is [Retry] with 3 attempts and a 1 second initial delay.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
