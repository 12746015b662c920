package pipeline_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/pipeline"
	"github.com/rohmanhakim/deck-voice/internal/storage"
	"github.com/rohmanhakim/deck-voice/pkg/hashutil"
	"github.com/rohmanhakim/deck-voice/pkg/limiter"
)

const testHost = "tts.example.test"

// testDeps groups every collaborator of an orchestrator under test.
type testDeps struct {
	sink      *metadataSinkSpy
	finalizer *mockFinalizer
	extractor pipeline.DeckExtractor
	store     pipeline.ArtifactStore
	fetcher   *fetcherMock
	limiter   *rateLimiterMock
	// pacer, when set, replaces limiter
	pacer     limiter.RateLimiter
	sleeper   *recordingSleeper
	outputDir string
	param     pipeline.RunParam
}

// newTestDeps builds deps backed by a real deck extractor and a real
// LocalStore in a fresh temp directory.
func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	sink := &metadataSinkSpy{}
	deckExtractor := extractor.NewDeckExtractor(
		sink,
		extractor.DefaultIncludedCategories(),
		extractor.DefaultExcludedCategories(),
		extractor.DefaultTextField,
	)
	outputDir := t.TempDir()
	return &testDeps{
		sink:      sink,
		finalizer: newMockFinalizer(t),
		extractor: &deckExtractor,
		store:     storage.NewLocalStore(sink, outputDir, hashutil.HashAlgoSHA256),
		fetcher:   newFetcherMockForTest(t),
		limiter:   newRateLimiterMockForTest(t),
		sleeper:   &recordingSleeper{},
		outputDir: outputDir,
		param: pipeline.RunParam{
			Host:             testHost,
			ThrottleCooldown: 5 * time.Minute,
			RandomSeed:       1,
		},
	}
}

func (d *testDeps) orchestrator() *pipeline.Orchestrator {
	var rateLimiter limiter.RateLimiter = d.limiter
	if d.pacer != nil {
		rateLimiter = d.pacer
	}
	o := pipeline.NewOrchestratorWithDeps(
		d.sink,
		d.finalizer,
		d.extractor,
		d.store,
		d.fetcher,
		rateLimiter,
		d.sleeper,
		d.param,
	)
	return &o
}

// deckDoc renders a minimal deck whose VOCAB block holds one entry per text.
func deckDoc(path string, texts ...string) extractor.Document {
	var b strings.Builder
	b.WriteString("<html><body><script>\nconst VOCAB = [\n")
	for _, text := range texts {
		fmt.Fprintf(&b, "  { jp: \"-\", en: %q },\n", text)
	}
	b.WriteString("];\n</script></body></html>")
	return extractor.Document{Path: path, Content: []byte(b.String())}
}

// quizDeck holds one vocabulary entry and one quiz entry.
func quizDeck(path string) extractor.Document {
	content := `<script>
const VOCAB = [ { en: "station" } ];
const QUIZ = [ { en: "quiz answer" } ];
</script>`
	return extractor.Document{Path: path, Content: []byte(content)}
}
