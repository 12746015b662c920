package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rohmanhakim/deck-voice/internal/config"
	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/fetcher"
	"github.com/rohmanhakim/deck-voice/internal/frontier"
	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/internal/normalize"
	"github.com/rohmanhakim/deck-voice/internal/source"
	"github.com/rohmanhakim/deck-voice/internal/storage"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"github.com/rohmanhakim/deck-voice/pkg/limiter"
	"github.com/rohmanhakim/deck-voice/pkg/retry"
	"github.com/rohmanhakim/deck-voice/pkg/timeutil"
)

/*
 Orchestrator is the sole control-plane authority of a run.

 - Stages detect and classify failure. Only the orchestrator decides
   whether a fragment is retried, given up, or the whole run aborts.
 - The frontier only ever receives fragments with a valid key.
   First occurrence of a dedup key wins.
 - Fragments are processed one at a time, in document order then
   extraction order. Nothing is fetched concurrently.
 - The cache is consulted right before each fetch. A cached or duplicate
   fragment never waits and never touches the network.
 - Metadata emission is observational only and never influences control flow.
*/

type Orchestrator struct {
	metadataSink  metadata.MetadataSink
	runFinalizer  metadata.RunFinalizer
	deckExtractor DeckExtractor
	store         ArtifactStore
	fetcher       fetcher.Fetcher
	rateLimiter   limiter.RateLimiter
	sleeper       timeutil.Sleeper
	param         RunParam
}

// NewOrchestrator wires the production stages from cfg.
func NewOrchestrator(
	cfg config.Config,
	metadataSink metadata.MetadataSink,
	runFinalizer metadata.RunFinalizer,
) Orchestrator {
	deckExtractor := extractor.NewDeckExtractor(
		metadataSink,
		cfg.IncludeCategories(),
		cfg.ExcludeCategories(),
		cfg.TextField(),
	)
	store := storage.NewLocalStore(metadataSink, cfg.OutputDir(), cfg.HashAlgo())
	speechFetcher := fetcher.NewSpeechFetcher(
		metadataSink,
		cfg.BaseURL(),
		cfg.Voice(),
		cfg.UserAgent(),
		cfg.Timeout(),
	)
	rateLimiter := limiter.NewConcurrentRateLimiter()
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())

	return NewOrchestratorWithDeps(
		metadataSink,
		runFinalizer,
		&deckExtractor,
		store,
		&speechFetcher,
		rateLimiter,
		timeutil.RealSleeper{},
		RunParam{
			Host:               speechFetcher.Host(),
			ThrottleCooldown:   cfg.ThrottleCooldown(),
			MaxThrottleRetries: cfg.MaxThrottleRetries(),
			RandomSeed:         cfg.RandomSeed(),
			DryRun:             cfg.DryRun(),
		},
	)
}

// NewOrchestratorWithDeps creates an Orchestrator with injected dependencies.
// Tests use it to substitute the network, the clock and the store.
func NewOrchestratorWithDeps(
	metadataSink metadata.MetadataSink,
	runFinalizer metadata.RunFinalizer,
	deckExtractor DeckExtractor,
	store ArtifactStore,
	audioFetcher fetcher.Fetcher,
	rateLimiter limiter.RateLimiter,
	sleeper timeutil.Sleeper,
	param RunParam,
) Orchestrator {
	return Orchestrator{
		metadataSink:  metadataSink,
		runFinalizer:  runFinalizer,
		deckExtractor: deckExtractor,
		store:         store,
		fetcher:       audioFetcher,
		rateLimiter:   rateLimiter,
		sleeper:       sleeper,
		param:         param,
	}
}

// RunPaths loads every deck at paths and runs them. A deck that cannot be
// read is recorded and skipped.
func (o *Orchestrator) RunPaths(ctx context.Context, paths []string) (RunSummary, error) {
	docs := make([]extractor.Document, 0, len(paths))
	skipped := 0
	for _, path := range paths {
		doc, err := source.Load(path)
		if err != nil {
			var sourceErr *source.SourceError
			cause := metadata.CauseUnknown
			if errors.As(err, &sourceErr) {
				cause = source.MapSourceErrorToMetadataCause(sourceErr)
			}
			o.metadataSink.RecordError(
				time.Now(),
				"source",
				"source.Load",
				cause,
				err.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrDocument, path),
				},
			)
			if failure.IsFatal(err) {
				return RunSummary{}, err
			}
			skipped++
			continue
		}
		docs = append(docs, doc)
	}
	return o.run(ctx, docs, skipped)
}

// Run processes docs to completion. Fragment-level failures are recorded and
// counted; only cancellation and unrecoverable storage failures end the run
// early with a non-nil error.
func (o *Orchestrator) Run(ctx context.Context, docs []extractor.Document) (RunSummary, error) {
	return o.run(ctx, docs, 0)
}

func (o *Orchestrator) run(
	ctx context.Context,
	docs []extractor.Document,
	skippedDocuments int,
) (summary RunSummary, runErr error) {
	runStartTime := time.Now()
	summary = newRunSummary()
	summary.SkippedDocuments = skippedDocuments

	defer func() {
		summary.Duration = time.Since(runStartTime)
		o.runFinalizer.RecordFinalRunStats(
			summary.Documents,
			summary.Fragments,
			summary.outcomes(),
			summary.Duration,
		)
	}()

	if !o.param.DryRun {
		if err := o.store.Open(); err != nil {
			return summary, err
		}
		defer o.store.Close()
	}

	// 1. Extract every deck and admit fragments in order
	workFrontier := frontier.NewFrontier()
	for _, doc := range docs {
		fragments, err := o.deckExtractor.Extract(doc)
		if err != nil {
			if failure.IsFatal(err) {
				return summary, err
			}
			// recoverable → already recorded by the extractor
			summary.SkippedDocuments++
			continue
		}
		summary.Documents++
		summary.Fragments += len(fragments)
		o.metadataSink.RecordDocument(doc.Path, len(fragments))

		for _, fragment := range fragments {
			key, err := normalize.Normalize(fragment.Text)
			if err != nil {
				o.settle(&summary, StateInvalid, fragment, "", 0,
					metadata.NewAttr(metadata.AttrMessage, normalize.MetadataCause(err).String()))
				continue
			}
			if workFrontier.Submit(frontier.NewWorkItem(fragment, key)) == frontier.Duplicate {
				o.settle(&summary, StateDuplicateSkip, fragment, key.ArtifactName(), 0)
			}
		}
	}

	// 2. Drain the admitted work one fragment at a time
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		item, ok := workFrontier.Dequeue()
		if !ok {
			break
		}
		if err := o.process(ctx, &summary, item); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// process drives one admitted fragment to a terminal state. A non-nil
// return aborts the run.
func (o *Orchestrator) process(ctx context.Context, summary *RunSummary, item frontier.WorkItem) error {
	fragment := item.Fragment()
	name := item.Key().ArtifactName()

	// 3. Cache lookup
	exists, err := o.store.Exists(name)
	if err != nil {
		if failure.IsFatal(err) {
			return err
		}
		o.fail(summary, fragment, name, 0, err)
		return nil
	}
	if exists {
		o.settle(summary, StateCacheHit, fragment, name, 0)
		return nil
	}

	if o.param.DryRun {
		o.settle(summary, StatePlanned, fragment, name, 0)
		return nil
	}

	// 4. Fetch into a pending artifact, cooling down on throttle
	result := retry.Retry(ctx, o.retryParam(fragment), func(attempt int) (storage.WriteResult, failure.ClassifiedError) {
		return o.attempt(ctx, fragment, name, attempt)
	})

	if result.IsSuccess() {
		summary.Artifacts = append(summary.Artifacts, result.Value())
		o.settle(summary, StateDone, fragment, name, result.Attempts())
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	fetchErr := result.Err()
	var retryErr *retry.RetryError
	if errors.As(fetchErr, &retryErr) && retryErr.Cause == retry.ErrCancelled {
		return fetchErr
	}
	var storageErr *storage.StorageError
	if errors.As(fetchErr, &storageErr) && storageErr.Cause == storage.ErrCauseArtifactExists {
		// another writer produced the artifact in between
		o.settle(summary, StateCacheHit, fragment, name, result.Attempts())
		return nil
	}
	if failure.IsFatal(fetchErr) {
		return fetchErr
	}

	o.fail(summary, fragment, name, result.Attempts(), fetchErr)
	return nil
}

// attempt performs one paced request for fragment and commits its body.
func (o *Orchestrator) attempt(
	ctx context.Context,
	fragment extractor.Fragment,
	name string,
	attempt int,
) (storage.WriteResult, failure.ClassifiedError) {
	if delay := o.rateLimiter.ResolveDelay(o.param.Host); delay > 0 {
		if err := o.sleeper.Sleep(ctx, delay); err != nil {
			return storage.WriteResult{}, &PipelineError{
				Message:   err.Error(),
				Retryable: false,
				Cause:     ErrCauseCancelled,
			}
		}
	}

	pending, err := o.store.BeginWrite(name)
	if err != nil {
		return storage.WriteResult{}, err
	}

	_, fetchErr := o.fetcher.Fetch(ctx, fetcher.NewFetchParam(fragment.Text, attempt), pending)
	o.rateLimiter.MarkLastFetchAsNow(o.param.Host)
	if fetchErr != nil {
		o.store.Abort(pending)
		// a failing destination surfaces as a transport error, but it is the disk
		if writeErr := pending.Err(); writeErr != nil {
			return storage.WriteResult{}, writeErr
		}
		return storage.WriteResult{}, fetchErr
	}

	return o.store.Commit(pending)
}

func (o *Orchestrator) retryParam(fragment extractor.Fragment) retry.RetryParam {
	maxAttempts := 0
	if o.param.MaxThrottleRetries > 0 {
		maxAttempts = o.param.MaxThrottleRetries + 1
	}
	return retry.NewRetryParam(
		0,
		o.param.RandomSeed,
		maxAttempts,
		timeutil.NewFixedBackoffParam(o.param.ThrottleCooldown),
	).
		WithSleeper(o.sleeper).
		WithOnRetry(func(attempt int, _ failure.ClassifiedError, wait time.Duration) {
			o.metadataSink.RecordThrottle(fragment.Text, attempt, wait)
		})
}

func (o *Orchestrator) settle(
	summary *RunSummary,
	state State,
	fragment extractor.Fragment,
	name string,
	attempts int,
	extra ...metadata.Attribute,
) {
	summary.Counts[state]++
	attrs := append(outcomeAttrs(fragment, name, attempts), extra...)
	o.metadataSink.RecordOutcome(state.String(), fragment.Text, attrs)
}

func (o *Orchestrator) fail(
	summary *RunSummary,
	fragment extractor.Fragment,
	name string,
	attempts int,
	err error,
) {
	summary.Counts[StateFailed]++
	summary.Failures = append(summary.Failures, FragmentFailure{
		Fragment:     fragment,
		ArtifactName: name,
		Attempts:     attempts,
		Err:          err,
	})
	attrs := append(
		outcomeAttrs(fragment, name, attempts),
		metadata.NewAttr(metadata.AttrMessage, err.Error()),
	)
	o.metadataSink.RecordOutcome(StateFailed.String(), fragment.Text, attrs)
}

func outcomeAttrs(fragment extractor.Fragment, name string, attempts int) []metadata.Attribute {
	attrs := []metadata.Attribute{
		metadata.NewAttr(metadata.AttrDocument, fragment.Source),
		metadata.NewAttr(metadata.AttrCategory, string(fragment.Category)),
	}
	if name != "" {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrArtifactName, name))
	}
	if attempts > 0 {
		attrs = append(attrs, metadata.NewAttr(metadata.AttrAttempt, fmt.Sprintf("%d", attempts)))
	}
	return attrs
}
