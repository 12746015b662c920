package timeutil

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestMaxDuration(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      time.Duration
	}{
		{
			name:      "multiple values returns maximum",
			durations: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 200 * time.Millisecond},
			want:      500 * time.Millisecond,
		},
		{
			name:      "single value returns that value",
			durations: []time.Duration{300 * time.Millisecond},
			want:      300 * time.Millisecond,
		},
		{
			name:      "empty slice returns zero",
			durations: []time.Duration{},
			want:      0,
		},
		{
			name:      "all negative returns least negative",
			durations: []time.Duration{-100 * time.Millisecond, -50 * time.Millisecond, -200 * time.Millisecond},
			want:      -50 * time.Millisecond,
		},
		{
			name:      "zero in mix returns positive max",
			durations: []time.Duration{0, 100 * time.Millisecond, 0},
			want:      100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDuration(tt.durations)
			if got != tt.want {
				t.Errorf("MaxDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDurationPtr(t *testing.T) {
	d := 5 * time.Second
	ptr := DurationPtr(d)

	if ptr == nil {
		t.Fatal("DurationPtr returned nil")
	}

	if *ptr != d {
		t.Errorf("DurationPtr() = %v, want %v", *ptr, d)
	}
}

func TestComputeJitter(t *testing.T) {
	tests := []struct {
		name string
		max  time.Duration
		rng  *rand.Rand
	}{
		{name: "max=0 returns 0", max: 0, rng: rand.New(rand.NewSource(1))},
		{name: "negative max returns 0", max: -100 * time.Millisecond, rng: rand.New(rand.NewSource(1))},
		{name: "nil rng returns 0", max: time.Second, rng: nil},
		{name: "positive max returns value within range", max: time.Second, rng: rand.New(rand.NewSource(42))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeJitter(tt.max, tt.rng)

			if tt.max <= 0 || tt.rng == nil {
				if got != 0 {
					t.Errorf("ComputeJitter() = %v, want 0", got)
				}
				return
			}

			if got < 0 || got >= tt.max {
				t.Errorf("ComputeJitter() = %v, want in [0, %v)", got, tt.max)
			}
		})
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	tests := []struct {
		name         string
		backoffCount int
		backoffParam BackoffParam
		want         time.Duration
	}{
		{
			name:         "first backoff returns initial duration",
			backoffCount: 1,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			want:         time.Second,
		},
		{
			name:         "third backoff doubles twice",
			backoffCount: 3,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			want:         4 * time.Second,
		},
		{
			name:         "growth is capped",
			backoffCount: 10,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			want:         30 * time.Second,
		},
		{
			name:         "fixed cool-down never grows",
			backoffCount: 7,
			backoffParam: NewFixedBackoffParam(5 * time.Minute),
			want:         5 * time.Minute,
		},
		{
			name:         "count below one treated as first",
			backoffCount: 0,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			want:         time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExponentialBackoffDelay(tt.backoffCount, 0, rand.New(rand.NewSource(1)), tt.backoffParam)
			if got != tt.want {
				t.Errorf("ExponentialBackoffDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExponentialBackoffDelay_WithJitter(t *testing.T) {
	param := NewFixedBackoffParam(time.Second)
	jitter := 100 * time.Millisecond

	got := ExponentialBackoffDelay(1, jitter, rand.New(rand.NewSource(42)), param)

	if got < time.Second || got >= time.Second+jitter {
		t.Errorf("ExponentialBackoffDelay() = %v, want in [1s, 1.1s)", got)
	}
}

func TestSleepContext_ReturnsAfterDuration(t *testing.T) {
	start := time.Now()
	if err := SleepContext(context.Background(), 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Errorf("SleepContext returned too early")
	}
}

func TestSleepContext_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepContext(ctx, time.Hour)
	if err != context.Canceled {
		t.Errorf("SleepContext() error = %v, want context.Canceled", err)
	}
}

func TestSleepContext_ZeroDuration(t *testing.T) {
	if err := SleepContext(context.Background(), 0); err != nil {
		t.Errorf("SleepContext(0) error = %v, want nil", err)
	}
}
