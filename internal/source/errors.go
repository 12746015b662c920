package source

import (
	"fmt"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

type SourceErrorCause string

const (
	ErrCauseRootNotFound SourceErrorCause = "root not found"
	ErrCauseSearchFailed SourceErrorCause = "search failed"
	ErrCauseReadFailed   SourceErrorCause = "read failed"
)

type SourceError struct {
	Message   string
	Retryable bool
	Cause     SourceErrorCause
	Path      string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error: %s: %s", e.Cause, e.Message)
}

func (e *SourceError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// MapSourceErrorToMetadataCause maps source-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func MapSourceErrorToMetadataCause(err *SourceError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseRootNotFound, ErrCauseReadFailed:
		return metadata.CauseContentInvalid
	case ErrCauseSearchFailed:
		return metadata.CauseStorageFailure
	default:
		return metadata.CauseUnknown
	}
}
