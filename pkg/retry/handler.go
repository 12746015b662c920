package retry

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"github.com/rohmanhakim/deck-voice/pkg/timeutil"
)

// Retry executes the provided function with retry logic.
// Only retryable errors trigger another attempt; the wait between attempts
// is computed from BackoffParam (a multiplier of 1 gives a fixed cool-down).
// With MaxAttempts == 0 the task is retried for as long as it keeps failing
// with a retryable error.
//
// Type parameter T represents the return type of the function being retried.
func Retry[T any](
	ctx context.Context,
	retryParam RetryParam,
	fn func(attempt int) (T, failure.ClassifiedError),
) Result[T] {
	var zero T

	sleeper := retryParam.Sleeper
	if sleeper == nil {
		sleeper = timeutil.RealSleeper{}
	}

	// Initialize random number generator with the provided seed
	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	for attempt := 1; ; attempt++ {
		value, err := fn(attempt)
		if err == nil {
			return Result[T]{value: value, attempts: attempt}
		}

		if !isErrorRetryable(err) {
			return Result[T]{value: zero, err: err, attempts: attempt}
		}

		if retryParam.MaxAttempts > 0 && attempt >= retryParam.MaxAttempts {
			return Result[T]{
				value: zero,
				err: &RetryError{
					Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", retryParam.MaxAttempts, err),
					Cause:     ErrExhaustedAttempts,
					Retryable: true, // recoverable at pipeline level
					Last:      err,
				},
				attempts: attempt,
			}
		}

		wait := timeutil.ExponentialBackoffDelay(attempt, retryParam.Jitter, rng, retryParam.BackoffParam)
		if retryParam.OnRetry != nil {
			retryParam.OnRetry(attempt, err, wait)
		}

		if sleepErr := sleeper.Sleep(ctx, wait); sleepErr != nil {
			return Result[T]{
				value: zero,
				err: &RetryError{
					Message:   fmt.Sprintf("interrupted after %d attempts: %v", attempt, sleepErr),
					Cause:     ErrCancelled,
					Retryable: false,
					Last:      err,
				},
				attempts: attempt,
			}
		}
	}
}

// isErrorRetryable checks if an error should be retried.
// Errors that do not expose IsRetryable are not retried.
func isErrorRetryable(err failure.ClassifiedError) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}

	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}

	return false
}
