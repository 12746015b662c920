package metadata

import (
	"time"
)

/*
	ErrorCause is a closed, canonical classification used exclusively for
	observability (logging, reporting).

	Rules:
	 - ErrorCause MUST NOT influence control flow.
	 - ErrorCause MUST NOT be used for retry, continuation, or abort decisions.
	 - Pipeline packages MAY map their local errors to ErrorCause,
	   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

/*
Canonical ErrorCause Table

# CauseUnknown
  - The failure does not map cleanly to any known category.

# CauseNetworkFailure
  - Failure caused by network transport or remote availability.
  - Connection refused, DNS failure, body truncated mid-stream.

# CausePolicyDisallow
  - The remote service refused the request by policy.
  - HTTP 429 throttling, HTTP 401/403.

# CauseRemoteFailure
  - The remote service answered with an unexpected status.
  - HTTP 5xx, HTTP 404.

# CauseContentInvalid
  - A document could not be read or parsed for fragments.

# CauseStorageFailure
  - Failure while persisting cache artifacts.
  - Disk full, permission errors, a concurrent run holding the lock.
*/
const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseRemoteFailure
	CauseContentInvalid
	CauseStorageFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseRemoteFailure:
		return "remote_failure"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	default:
		return "unknown"
	}
}

type ArtifactKind string

const (
	ArtifactAudio ArtifactKind = "audio"
)

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{
		Key:   key,
		Value: val,
	}
}

type AttributeKey string

const (
	AttrURL          AttributeKey = "url"
	AttrDocument     AttributeKey = "document"
	AttrCategory     AttributeKey = "category"
	AttrArtifactName AttributeKey = "artifact"
	AttrWritePath    AttributeKey = "write_path"
	AttrHTTPStatus   AttributeKey = "http_status"
	AttrContentHash  AttributeKey = "content_hash"
	AttrSize         AttributeKey = "size"
	AttrAttempt      AttributeKey = "attempt"
	AttrMessage      AttributeKey = "message"
)

// FetchEvent is the record of a single outbound synthesis request.
type FetchEvent struct {
	FetchURL   string
	HTTPStatus int
	Duration   time.Duration
	SizeByte   uint64
	Attempt    int
}
