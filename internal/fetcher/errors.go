package fetcher

import (
	"fmt"
	"net/http"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

type FetchErrorCause string

const (
	// ErrCauseThrottled is HTTP 429. The only cause worth retrying.
	ErrCauseThrottled FetchErrorCause = "throttled"
	// ErrCauseTransport covers connection failures and bodies cut off mid-stream.
	ErrCauseTransport FetchErrorCause = "transport failure"
	// ErrCauseHTTPStatus is any other non-200 answer.
	ErrCauseHTTPStatus FetchErrorCause = "unexpected http status"
)

type FetchError struct {
	Message    string
	Retryable  bool
	Cause      FetchErrorCause
	StatusCode int
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetcher error: %s (%d): %s", e.Cause, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("fetcher error: %s: %s", e.Cause, e.Message)
}

// Severity is recoverable for every cause: a failed fetch only fails its
// own fragment. Whether the fragment is tried again is decided by IsRetryable.
func (e *FetchError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

// IsRetryable returns whether this error is retryable
func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToMetadataCause maps fetcher-local error semantics
// to the canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapFetchErrorToMetadataCause(err *FetchError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseThrottled:
		return metadata.CausePolicyDisallow
	case ErrCauseTransport:
		return metadata.CauseNetworkFailure
	case ErrCauseHTTPStatus:
		if err.StatusCode == http.StatusUnauthorized || err.StatusCode == http.StatusForbidden {
			return metadata.CausePolicyDisallow
		}
		return metadata.CauseRemoteFailure
	default:
		return metadata.CauseUnknown
	}
}
