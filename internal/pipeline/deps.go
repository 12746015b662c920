package pipeline

import (
	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/storage"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

type DeckExtractor interface {
	Extract(doc extractor.Document) ([]extractor.Fragment, failure.ClassifiedError)
}

// ArtifactStore is the cache store plus its run lifecycle.
type ArtifactStore interface {
	storage.Store
	Open() failure.ClassifiedError
	Close() error
}
