package retry

import (
	"time"

	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"github.com/rohmanhakim/deck-voice/pkg/timeutil"
)

// RetryParam holds the parameters for retry logic.
// These parameters are passed from outside (e.g., config) and should not
// be known by the retry handler internally.
type RetryParam struct {
	Jitter     time.Duration
	RandomSeed int64
	// MaxAttempts of 0 means retry until success or a non-retryable error.
	MaxAttempts  int
	BackoffParam timeutil.BackoffParam
	// Sleeper defaults to timeutil.RealSleeper when nil.
	Sleeper timeutil.Sleeper
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, err failure.ClassifiedError, wait time.Duration)
}

// NewRetryParam creates a new RetryParam with the given settings.
func NewRetryParam(
	jitter time.Duration,
	randomSeed int64,
	maxAttempts int,
	backoffParam timeutil.BackoffParam,
) RetryParam {
	return RetryParam{
		Jitter:       jitter,
		RandomSeed:   randomSeed,
		MaxAttempts:  maxAttempts,
		BackoffParam: backoffParam,
	}
}

func (p RetryParam) WithSleeper(sleeper timeutil.Sleeper) RetryParam {
	p.Sleeper = sleeper
	return p
}

func (p RetryParam) WithOnRetry(fn func(attempt int, err failure.ClassifiedError, wait time.Duration)) RetryParam {
	p.OnRetry = fn
	return p
}

// Result carries the outcome of a retried task.
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

func (r Result[T]) Attempts() int {
	return r.attempts
}

func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

func (r Result[T]) IsFailure() bool {
	return r.err != nil
}
