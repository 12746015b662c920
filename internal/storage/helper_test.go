package storage_test

import (
	"time"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
)

// metadataSinkMock is a spy for metadata.MetadataSink
type metadataSinkMock struct {
	metadata.NoopSink
	recordErrorCalled    bool
	recordErrorCause     metadata.ErrorCause
	recordErrorAction    string
	recordArtifactCalled bool
	recordArtifactKind   metadata.ArtifactKind
	recordArtifactPath   string
	recordArtifactAttrs  []metadata.Attribute
}

func (m *metadataSinkMock) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.recordErrorCalled = true
	m.recordErrorCause = cause
	m.recordErrorAction = action
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.recordArtifactCalled = true
	m.recordArtifactKind = kind
	m.recordArtifactPath = path
	m.recordArtifactAttrs = attrs
}
