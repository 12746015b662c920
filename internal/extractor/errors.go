package extractor

import (
	"fmt"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

type ExtractionErrorCause string

const (
	ErrCauseNotText     ExtractionErrorCause = "not a text document"
	ErrCauseParseFailed ExtractionErrorCause = "parse failed"
)

type ExtractionError struct {
	Message   string
	Retryable bool
	Cause     ExtractionErrorCause
	Path      string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s: %s", e.Cause, e.Message)
}

func (e *ExtractionError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapExtractionErrorToMetadataCause maps extractor-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapExtractionErrorToMetadataCause(err *ExtractionError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseNotText, ErrCauseParseFailed:
		return metadata.CauseContentInvalid
	default:
		return metadata.CauseUnknown
	}
}
