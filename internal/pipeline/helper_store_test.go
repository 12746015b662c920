package pipeline_test

import (
	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/storage"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"github.com/stretchr/testify/mock"
)

// storeMock is a testify mock for the ArtifactStore
type storeMock struct {
	mock.Mock
}

func (s *storeMock) Open() failure.ClassifiedError {
	args := s.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(failure.ClassifiedError)
}

func (s *storeMock) Close() error {
	s.Called()
	return nil
}

func (s *storeMock) Exists(name string) (bool, failure.ClassifiedError) {
	args := s.Called(name)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return args.Bool(0), err
}

func (s *storeMock) BeginWrite(name string) (*storage.PendingArtifact, failure.ClassifiedError) {
	args := s.Called(name)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	pending, _ := args.Get(0).(*storage.PendingArtifact)
	return pending, err
}

func (s *storeMock) Commit(pending *storage.PendingArtifact) (storage.WriteResult, failure.ClassifiedError) {
	args := s.Called(pending)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return args.Get(0).(storage.WriteResult), err
}

func (s *storeMock) Abort(pending *storage.PendingArtifact) {
	s.Called(pending)
}

// extractorMock is a testify mock for the DeckExtractor
type extractorMock struct {
	mock.Mock
}

func (e *extractorMock) Extract(doc extractor.Document) ([]extractor.Fragment, failure.ClassifiedError) {
	args := e.Called(doc)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	fragments, _ := args.Get(0).([]extractor.Fragment)
	return fragments, err
}
