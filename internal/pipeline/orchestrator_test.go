package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/fetcher"
	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var audio = []byte("ID3\x04\x00fake-mpeg-frames")

func TestRun_FetchesEachFragmentOnce(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "station", audio)
	respondAudio(deps.fetcher, "ticket", audio)

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "station", "ticket"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 2, summary.Fragments)
	assert.Equal(t, 2, summary.Count(pipeline.StateDone))
	require.Len(t, summary.Artifacts, 2)
	assert.Equal(t, "station.mp3", summary.Artifacts[0].Name())
	assert.Equal(t, "ticket.mp3", summary.Artifacts[1].Name())

	for _, name := range []string{"station.mp3", "ticket.mp3"} {
		got, readErr := os.ReadFile(filepath.Join(deps.outputDir, name))
		require.NoError(t, readErr)
		assert.Equal(t, audio, got)
	}
	deps.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestRun_Idempotent(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "station", audio)
	respondAudio(deps.fetcher, "ticket", audio)
	docs := []extractor.Document{deckDoc("lesson1.html", "station", "ticket")}

	_, err := deps.orchestrator().Run(context.Background(), docs)
	require.NoError(t, err)
	deps.fetcher.AssertNumberOfCalls(t, "Fetch", 2)

	second, err := deps.orchestrator().Run(context.Background(), docs)
	require.NoError(t, err)

	// the second run never reaches the network
	deps.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
	assert.Equal(t, 2, second.Count(pipeline.StateCacheHit))
	assert.Equal(t, 0, second.Count(pipeline.StateDone))
	assert.Empty(t, second.Artifacts)
}

func TestRun_Dedup_FirstOccurrenceWins(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "Hello", audio)

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "Hello", "hello ", "HELLO"),
	})

	require.NoError(t, err)
	deps.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Equal(t, 1, countFetches(deps.fetcher, "Hello"))
	assert.Equal(t, 1, summary.Count(pipeline.StateDone))
	assert.Equal(t, 2, summary.Count(pipeline.StateDuplicateSkip))
	assert.FileExists(t, filepath.Join(deps.outputDir, "hello.mp3"))
}

func TestRun_DedupAcrossDocuments(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "station", audio)
	respondAudio(deps.fetcher, "ticket", audio)

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "station"),
		deckDoc("lesson2.html", "Station", "ticket"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Documents)
	assert.Equal(t, 3, summary.Fragments)
	assert.Equal(t, 2, summary.Count(pipeline.StateDone))
	assert.Equal(t, 1, summary.Count(pipeline.StateDuplicateSkip))
	assert.Equal(t, []string{"duplicate_skip"}, deps.sink.outcomesOf("Station"))
}

func TestRun_ProcessingFollowsDocumentThenExtractionOrder(t *testing.T) {
	deps := newTestDeps(t)
	for _, text := range []string{"c", "a", "b"} {
		respondAudio(deps.fetcher, text, audio)
	}

	_, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("z.html", "c"),
		deckDoc("a.html", "a", "b"),
	})

	require.NoError(t, err)
	var order []string
	for _, call := range deps.fetcher.Calls {
		order = append(order, call.Arguments.Get(1).(fetcher.FetchParam).Text())
	}
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestRun_QuizExcluded(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "station", audio)

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		quizDeck("lesson1.html"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Fragments)
	assert.Equal(t, 0, countFetches(deps.fetcher, "quiz answer"))
	assert.NoFileExists(t, filepath.Join(deps.outputDir, "quizanswer.mp3"))
}

func TestRun_CacheHitSkipsNetworkAndPacing(t *testing.T) {
	deps := newTestDeps(t)
	require.NoError(t, os.WriteFile(filepath.Join(deps.outputDir, "station.mp3"), audio, 0644))
	respondAudio(deps.fetcher, "ticket", audio)

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "station", "ticket"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(pipeline.StateCacheHit))
	assert.Equal(t, 1, summary.Count(pipeline.StateDone))
	assert.Equal(t, 0, countFetches(deps.fetcher, "station"))
	deps.limiter.AssertNumberOfCalls(t, "ResolveDelay", 1)
	deps.limiter.AssertNumberOfCalls(t, "MarkLastFetchAsNow", 1)
}

func TestRun_FailureIsolation(t *testing.T) {
	deps := newTestDeps(t)
	respondError(deps.fetcher, "broken", serverError())
	respondAudio(deps.fetcher, "station", audio)

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "broken", "station"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(pipeline.StateFailed))
	assert.Equal(t, 1, summary.Count(pipeline.StateDone))
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "broken", summary.Failures[0].Fragment.Text)
	assert.Equal(t, 1, summary.Failures[0].Attempts)
	assert.NoFileExists(t, filepath.Join(deps.outputDir, "broken.mp3"))
	assert.FileExists(t, filepath.Join(deps.outputDir, "station.mp3"))
	// a failed fragment is not retried within the run
	assert.Equal(t, 1, countFetches(deps.fetcher, "broken"))
}

func TestRun_InvalidFragmentIsSkipped(t *testing.T) {
	stubExtractor := new(extractorMock)
	base := newTestDeps(t)
	base.extractor = stubExtractor
	doc := extractor.Document{Path: "lesson1.html"}
	stubExtractor.On("Extract", doc).Return([]extractor.Fragment{
		{Category: extractor.CategoryVocabulary, Text: "   ", Source: "lesson1.html"},
		{Category: extractor.CategoryVocabulary, Text: "station", Source: "lesson1.html"},
	}, nil)
	respondAudio(base.fetcher, "station", audio)

	summary, err := base.orchestrator().Run(context.Background(), []extractor.Document{doc})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count(pipeline.StateInvalid))
	assert.Equal(t, 1, summary.Count(pipeline.StateDone))
	assert.Empty(t, summary.Failures)
	base.fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestRun_RecoverableExtractionErrorSkipsDocument(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "station", audio)
	binary := extractor.Document{Path: "broken.html", Content: []byte{0xff, 0xfe, 0xfd}}

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		binary,
		deckDoc("lesson1.html", "station"),
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedDocuments)
	assert.Equal(t, 1, summary.Documents)
	assert.Equal(t, 1, summary.Count(pipeline.StateDone))
}

func TestRun_DryRunNeverFetchesOrWrites(t *testing.T) {
	deps := newTestDeps(t)
	deps.param.DryRun = true
	require.NoError(t, os.WriteFile(filepath.Join(deps.outputDir, "station.mp3"), audio, 0644))

	summary, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "station", "ticket", "Ticket"),
	})

	require.NoError(t, err)
	deps.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1, summary.Count(pipeline.StateCacheHit))
	assert.Equal(t, 1, summary.Count(pipeline.StatePlanned))
	assert.Equal(t, 1, summary.Count(pipeline.StateDuplicateSkip))

	entries, readErr := os.ReadDir(deps.outputDir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1, "dry run must not create files, lock included")
}

func TestRun_RecordsFinalStats(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "station", audio)

	_, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "station", "Station"),
	})

	require.NoError(t, err)
	require.NotNil(t, deps.finalizer.recordedStats)
	assert.Equal(t, 1, deps.finalizer.recordedStats.totalDocuments)
	assert.Equal(t, 2, deps.finalizer.recordedStats.totalFragments)
	assert.Equal(t, map[string]int{"done": 1, "duplicate_skip": 1}, deps.finalizer.recordedStats.outcomes)
	assert.Equal(t, 2, deps.sink.documents["lesson1.html"])
}

func TestRun_OutcomeCarriesArtifactName(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "Where is it?", audio)

	_, err := deps.orchestrator().Run(context.Background(), []extractor.Document{
		deckDoc("lesson1.html", "Where is it?"),
	})

	require.NoError(t, err)
	require.Len(t, deps.sink.outcomes, 1)
	assert.Contains(t, deps.sink.outcomes[0].attrs,
		metadata.NewAttr(metadata.AttrArtifactName, "whereisit.mp3"))
	assert.FileExists(t, filepath.Join(deps.outputDir, "whereisit.mp3"))
}

func TestRunPaths_UnreadableDeckIsSkipped(t *testing.T) {
	deps := newTestDeps(t)
	respondAudio(deps.fetcher, "station", audio)
	dir := t.TempDir()
	good := filepath.Join(dir, "lesson1.html")
	require.NoError(t, os.WriteFile(good, deckDoc(good, "station").Content, 0644))

	summary, err := deps.orchestrator().RunPaths(context.Background(), []string{
		filepath.Join(dir, "missing.html"),
		good,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedDocuments)
	assert.Equal(t, 1, summary.Count(pipeline.StateDone))
	assert.Len(t, deps.sink.errors, 1)
}
