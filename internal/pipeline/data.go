package pipeline

import (
	"time"

	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/storage"
)

// State is the terminal state a fragment reached during a run.
type State string

const (
	StateDuplicateSkip State = "duplicate_skip"
	StateCacheHit      State = "cache_hit"
	StateDone          State = "done"
	StateFailed        State = "failed"
	StateInvalid       State = "invalid"
	// StatePlanned is only reached in dry-run mode, in place of fetching.
	StatePlanned State = "planned"
)

func (s State) String() string {
	return string(s)
}

// RunParam carries the run-wide knobs the orchestrator needs beyond its deps.
type RunParam struct {
	// Host keys the pacing between consecutive requests.
	Host             string
	ThrottleCooldown time.Duration
	// MaxThrottleRetries bounds retries after a throttled response. 0 is unbounded.
	MaxThrottleRetries int
	RandomSeed         int64
	DryRun             bool
}

// FragmentFailure describes one fragment that ended in StateFailed.
type FragmentFailure struct {
	Fragment     extractor.Fragment
	ArtifactName string
	Attempts     int
	Err          error
}

type RunSummary struct {
	// Documents is the number of decks successfully extracted.
	Documents int
	// SkippedDocuments could not be loaded or extracted.
	SkippedDocuments int
	// Fragments is the number of extracted entries before dedup.
	Fragments int
	Counts    map[State]int
	Artifacts []storage.WriteResult
	Failures  []FragmentFailure
	Duration  time.Duration
}

func newRunSummary() RunSummary {
	return RunSummary{
		Counts: make(map[State]int),
	}
}

func (r RunSummary) Count(state State) int {
	return r.Counts[state]
}

func (r RunSummary) outcomes() map[string]int {
	out := make(map[string]int, len(r.Counts))
	for state, n := range r.Counts {
		out[state.String()] = n
	}
	return out
}
