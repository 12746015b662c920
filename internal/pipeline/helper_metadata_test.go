package pipeline_test

import (
	"testing"
	"time"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
)

type outcomeEvent struct {
	outcome string
	text    string
	attrs   []metadata.Attribute
}

type throttleEvent struct {
	text    string
	attempt int
	wait    time.Duration
}

// metadataSinkSpy captures what the orchestrator reports
type metadataSinkSpy struct {
	metadata.NoopSink
	outcomes  []outcomeEvent
	throttles []throttleEvent
	documents map[string]int
	errors    []metadata.ErrorCause
}

func (m *metadataSinkSpy) RecordOutcome(outcome string, text string, attrs []metadata.Attribute) {
	m.outcomes = append(m.outcomes, outcomeEvent{outcome: outcome, text: text, attrs: attrs})
}

func (m *metadataSinkSpy) RecordThrottle(text string, attempt int, wait time.Duration) {
	m.throttles = append(m.throttles, throttleEvent{text: text, attempt: attempt, wait: wait})
}

func (m *metadataSinkSpy) RecordDocument(path string, fragmentCount int) {
	if m.documents == nil {
		m.documents = make(map[string]int)
	}
	m.documents[path] = fragmentCount
}

func (m *metadataSinkSpy) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.errors = append(m.errors, cause)
}

func (m *metadataSinkSpy) outcomesOf(text string) []string {
	var out []string
	for _, e := range m.outcomes {
		if e.text == text {
			out = append(out, e.outcome)
		}
	}
	return out
}

// mockFinalizer is a test double that captures final run statistics
type mockFinalizer struct {
	recordedStats *capturedStats
}

type capturedStats struct {
	totalDocuments int
	totalFragments int
	outcomes       map[string]int
	duration       time.Duration
}

func newMockFinalizer(t *testing.T) *mockFinalizer {
	t.Helper()
	return &mockFinalizer{}
}

func (m *mockFinalizer) RecordFinalRunStats(
	totalDocuments int,
	totalFragments int,
	outcomes map[string]int,
	duration time.Duration,
) {
	m.recordedStats = &capturedStats{
		totalDocuments: totalDocuments,
		totalFragments: totalFragments,
		outcomes:       outcomes,
		duration:       duration,
	}
}
