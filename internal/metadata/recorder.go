package metadata

import (
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

/*
Metadata Collected
- Per-document fragment counts
- Per-fragment outcomes
- Fetch status codes, sizes and durations
- Artifact paths and content hashes

Logging Goals
- Every outcome reported individually
- Post-run auditability
- Failure diagnostics

Metadata is write-only.
No component may read metadata to influence fetch, retry or abort decisions.
*/

type MetadataSink interface {
	RecordError(
		observedAt time.Time,
		packageName string,
		action string,
		cause ErrorCause,
		details string,
		attrs []Attribute,
	)
	RecordDocument(path string, fragmentCount int)
	RecordFetch(event FetchEvent)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordOutcome(outcome string, text string, attrs []Attribute)
	RecordThrottle(text string, attempt int, wait time.Duration)
}

type RunFinalizer interface {
	RecordFinalRunStats(
		totalDocuments int,
		totalFragments int,
		outcomes map[string]int,
		duration time.Duration,
	)
}

/*
Recorder renders structured run events through charmbracelet/log.
It must not:
- perform I/O decisions
- affect control flow
Events are recorded synchronously in the order they are received;
the pipeline is single-flow so that order is the processing order.
*/
type Recorder struct {
	logger *log.Logger
}

func NewRecorder(logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		logger: logger,
	}
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
	keyvals := []interface{}{
		"package", packageName,
		"action", action,
		"cause", cause.String(),
		"observed_at", observedAt.Format(time.RFC3339),
	}
	keyvals = appendAttrs(keyvals, attrs)
	r.logger.Error(details, keyvals...)
}

func (r *Recorder) RecordDocument(path string, fragmentCount int) {
	r.logger.Info("scanned document", "document", path, "fragments", fragmentCount)
}

func (r *Recorder) RecordFetch(event FetchEvent) {
	r.logger.Debug("fetch",
		"url", event.FetchURL,
		"status", event.HTTPStatus,
		"duration", event.Duration.Round(time.Millisecond),
		"size", humanize.Bytes(event.SizeByte),
		"attempt", event.Attempt,
	)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	keyvals := []interface{}{"kind", string(kind), "path", path}
	keyvals = appendAttrs(keyvals, attrs)
	r.logger.Debug("artifact committed", keyvals...)
}

func (r *Recorder) RecordOutcome(outcome string, text string, attrs []Attribute) {
	keyvals := []interface{}{"outcome", outcome, "text", text}
	keyvals = appendAttrs(keyvals, attrs)
	switch outcome {
	case "failed":
		r.logger.Error("fragment failed", keyvals...)
	case "invalid":
		r.logger.Debug("fragment skipped", keyvals...)
	default:
		r.logger.Info("fragment "+outcome, keyvals...)
	}
}

func (r *Recorder) RecordThrottle(text string, attempt int, wait time.Duration) {
	r.logger.Warn("throttled, cooling down",
		"text", text,
		"attempt", attempt,
		"wait", wait,
	)
}

/*
RecordFinalRunStats records a terminal, derived summary of a completed run.

Contract:
  - MUST be called exactly once per run.
  - MUST be called only after every fragment reached a terminal state
    or the run aborted.
  - The provided counts MUST be derived from pipeline state.
*/
func (r *Recorder) RecordFinalRunStats(
	totalDocuments int,
	totalFragments int,
	outcomes map[string]int,
	duration time.Duration,
) {
	keyvals := []interface{}{
		"documents", totalDocuments,
		"fragments", totalFragments,
		"duration", duration.Round(time.Second),
	}
	keys := make([]string, 0, len(outcomes))
	for k := range outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyvals = append(keyvals, k, outcomes[k])
	}
	r.logger.Info("run finished", keyvals...)
}

func appendAttrs(keyvals []interface{}, attrs []Attribute) []interface{} {
	for _, a := range attrs {
		keyvals = append(keyvals, string(a.Key), a.Value)
	}
	return keyvals
}

// NoopSink, struct that implements MetadataSink and RunFinalizer but does nothing
// Pipeline (or Test) can decide whether to inject Recorder or NoopSink

type NoopSink struct{}

func (n *NoopSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	details string,
	attrs []Attribute,
) {
}

func (n *NoopSink) RecordDocument(path string, fragmentCount int) {}

func (n *NoopSink) RecordFetch(event FetchEvent) {}

func (n *NoopSink) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {}

func (n *NoopSink) RecordOutcome(outcome string, text string, attrs []Attribute) {}

func (n *NoopSink) RecordThrottle(text string, attempt int, wait time.Duration) {}

func (n *NoopSink) RecordFinalRunStats(
	totalDocuments int,
	totalFragments int,
	outcomes map[string]int,
	duration time.Duration,
) {
}
