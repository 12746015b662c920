package timeutil

import "time"

// Backoff parameters
// example:
//
//	initialDuration := 5 * time.Minute // Start with 5m
//	multiplier := 1.0                  // Fixed cool-down, no growth
//	maxDuration := 5 * time.Minute     // Cap at 5m

type BackoffParam struct {
	initialDuration time.Duration
	multiplier      float64
	maxDuration     time.Duration
}

func NewBackoffParam(
	initialDuration time.Duration,
	multiplier float64,
	maxDuration time.Duration,
) BackoffParam {
	return BackoffParam{
		initialDuration: initialDuration,
		multiplier:      multiplier,
		maxDuration:     maxDuration,
	}
}

// NewFixedBackoffParam returns a BackoffParam that always yields d.
func NewFixedBackoffParam(d time.Duration) BackoffParam {
	return NewBackoffParam(d, 1.0, d)
}

func (b *BackoffParam) InitialDuration() time.Duration {
	return b.initialDuration
}

func (b *BackoffParam) Multiplier() float64 {
	return b.multiplier
}

func (b *BackoffParam) MaxDuration() time.Duration {
	return b.maxDuration
}
