package pipeline_test

import (
	"context"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/rohmanhakim/deck-voice/internal/fetcher"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"github.com/stretchr/testify/mock"
)

// fetcherMock is a testify mock for the Fetcher
type fetcherMock struct {
	mock.Mock
}

func newFetcherMockForTest(t *testing.T) *fetcherMock {
	t.Helper()
	return new(fetcherMock)
}

func (f *fetcherMock) Fetch(
	ctx context.Context,
	fetchParam fetcher.FetchParam,
	dst io.Writer,
) (fetcher.FetchResult, failure.ClassifiedError) {
	args := f.Called(ctx, fetchParam, dst)
	result := args.Get(0).(fetcher.FetchResult)
	var err failure.ClassifiedError
	if args.Get(1) != nil {
		err = args.Get(1).(failure.ClassifiedError)
	}
	return result, err
}

// forText matches the FetchParam of one fragment text.
func forText(text string) interface{} {
	return mock.MatchedBy(func(p fetcher.FetchParam) bool {
		return p.Text() == text
	})
}

func okResult(size int) fetcher.FetchResult {
	u, _ := url.Parse("https://" + testHost + "/tts")
	return fetcher.NewFetchResultForTest(*u, 200, "audio/mpeg", uint64(size), time.Millisecond)
}

// respondAudio makes every fetch of text stream body into the destination.
func respondAudio(m *fetcherMock, text string, body []byte) *mock.Call {
	return m.On("Fetch", mock.Anything, forText(text), mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(2).(io.Writer).Write(body)
		}).
		Return(okResult(len(body)), nil)
}

// respondError makes the next fetch of text fail with err.
func respondError(m *fetcherMock, text string, err *fetcher.FetchError) *mock.Call {
	return m.On("Fetch", mock.Anything, forText(text), mock.Anything).
		Return(fetcher.FetchResult{}, err).
		Once()
}

func throttled() *fetcher.FetchError {
	return &fetcher.FetchError{
		Message:    "too many requests",
		Retryable:  true,
		Cause:      fetcher.ErrCauseThrottled,
		StatusCode: 429,
	}
}

func serverError() *fetcher.FetchError {
	return &fetcher.FetchError{
		Message:    "internal server error",
		Retryable:  false,
		Cause:      fetcher.ErrCauseHTTPStatus,
		StatusCode: 500,
	}
}

func countFetches(m *fetcherMock, text string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == "Fetch" && call.Arguments.Get(1).(fetcher.FetchParam).Text() == text {
			n++
		}
	}
	return n
}
