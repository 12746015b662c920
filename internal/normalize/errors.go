package normalize

import (
	"fmt"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

type NormalizationErrorCause string

const (
	// ErrCauseEmptyFragment indicates the fragment text is empty once trimmed.
	// Such fragments are skipped without being reported as failures.
	ErrCauseEmptyFragment NormalizationErrorCause = "empty fragment"
)

type NormalizationError struct {
	Message   string
	Retryable bool
	Cause     NormalizationErrorCause
}

func (e *NormalizationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("normalization error: %s", e.Cause)
	}
	return fmt.Sprintf("normalization error: %s: %s", e.Cause, e.Message)
}

func (e *NormalizationError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// Is matches any NormalizationError with the same cause, so callers can
// use errors.Is(err, ErrInvalidFragment).
func (e *NormalizationError) Is(target error) bool {
	t, ok := target.(*NormalizationError)
	if !ok {
		return false
	}
	return e.Cause == t.Cause
}

// ErrInvalidFragment is the sentinel for text that cannot produce a key.
// It is recoverable: the fragment is skipped and the run continues.
var ErrInvalidFragment = &NormalizationError{
	Retryable: true,
	Cause:     ErrCauseEmptyFragment,
}

// mapNormalizationErrorToMetadataCause maps normalize-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapNormalizationErrorToMetadataCause(err *NormalizationError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseEmptyFragment:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}

// MetadataCause exposes the observational mapping to the pipeline,
// which reports normalization failures on the stage's behalf.
func MetadataCause(err error) metadata.ErrorCause {
	if ne, ok := err.(*NormalizationError); ok {
		return mapNormalizationErrorToMetadataCause(ne)
	}
	return metadata.CauseUnknown
}
