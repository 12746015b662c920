package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/pkg/failure"
	"github.com/rohmanhakim/deck-voice/pkg/urlutil"
)

/*
Responsibilities

- Build the synthesis request for one fragment
- Perform exactly one HTTP GET per call
- Stream a successful body into the caller's writer
- Classify everything else

Fetch Semantics

- 200 is the only success
- 429 is throttling and the only retryable answer
- Any other status, or a body cut off mid-stream, fails the fragment
- Every call is recorded with metadata

The fetcher does not pace, retry or persist. Those belong to the caller.
*/

const errorBodyPreviewBytes = 256

type SpeechFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	endpoint     url.URL
	voice        string
	userAgent    string
}

// NewSpeechFetcher builds a fetcher for endpoint. A zero timeout leaves the
// request bounded only by ctx.
func NewSpeechFetcher(
	metadataSink metadata.MetadataSink,
	endpoint url.URL,
	voice string,
	userAgent string,
	timeout time.Duration,
) SpeechFetcher {
	return SpeechFetcher{
		metadataSink: metadataSink,
		httpClient:   &http.Client{Timeout: timeout},
		endpoint:     endpoint,
		voice:        voice,
		userAgent:    userAgent,
	}
}

// WithHTTPClient swaps the underlying client, mainly for tests.
func (s SpeechFetcher) WithHTTPClient(client *http.Client) SpeechFetcher {
	s.httpClient = client
	return s
}

// Host identifies the remote service for pacing purposes.
func (s *SpeechFetcher) Host() string {
	canonical := urlutil.Canonicalize(s.endpoint)
	return canonical.Host
}

// RequestURL is the full request URL for text: the endpoint with voice and
// text added to its query.
func (s *SpeechFetcher) RequestURL(text string) url.URL {
	return urlutil.WithQuery(s.endpoint, url.Values{
		"voice": {s.voice},
		"text":  {text},
	})
}

func (s *SpeechFetcher) Fetch(
	ctx context.Context,
	fetchParam FetchParam,
	dst io.Writer,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "SpeechFetcher.Fetch"
	fetchUrl := s.RequestURL(fetchParam.text)
	startTime := time.Now()

	result, statusCode, err := s.performFetch(ctx, fetchUrl, dst)

	duration := time.Since(startTime)
	result.meta.duration = duration

	s.metadataSink.RecordFetch(metadata.FetchEvent{
		FetchURL:   fetchUrl.String(),
		HTTPStatus: statusCode,
		Duration:   duration,
		SizeByte:   result.meta.transferredSizeByte,
		Attempt:    fetchParam.attempt,
	})

	if err != nil {
		// throttling is reported by the caller together with its cool-down
		if err.Cause != ErrCauseThrottled {
			s.metadataSink.RecordError(
				time.Now(),
				"fetcher",
				callerMethod,
				mapFetchErrorToMetadataCause(err),
				err.Error(),
				[]metadata.Attribute{
					metadata.NewAttr(metadata.AttrURL, fetchUrl.String()),
					metadata.NewAttr(metadata.AttrHTTPStatus, fmt.Sprintf("%d", statusCode)),
					metadata.NewAttr(metadata.AttrAttempt, fmt.Sprintf("%d", fetchParam.attempt)),
				},
			)
		}
		return FetchResult{}, err
	}

	return result, nil
}

func (s *SpeechFetcher) performFetch(
	ctx context.Context,
	fetchUrl url.URL,
	dst io.Writer,
) (FetchResult, int, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, 0, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseTransport,
		}
	}
	for key, value := range requestHeaders(s.userAgent) {
		req.Header.Set(key, value)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, 0, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: false,
			Cause:     ErrCauseTransport,
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyPreviewBytes))
		return FetchResult{}, resp.StatusCode, &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseThrottled,
			StatusCode: resp.StatusCode,
		}

	case resp.StatusCode != http.StatusOK:
		return FetchResult{}, resp.StatusCode, &FetchError{
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, bodyPreview(resp.Body)),
			Retryable:  false,
			Cause:      ErrCauseHTTPStatus,
			StatusCode: resp.StatusCode,
		}
	}

	tw := &trackingWriter{w: dst}
	if _, err := io.Copy(tw, resp.Body); err != nil {
		message := fmt.Sprintf("reading response body: %v", err)
		if tw.writeErr != nil {
			message = fmt.Sprintf("writing response body: %v", tw.writeErr)
		}
		return FetchResult{meta: ResponseMeta{transferredSizeByte: tw.n}}, resp.StatusCode, &FetchError{
			Message:    message,
			Retryable:  false,
			Cause:      ErrCauseTransport,
			StatusCode: resp.StatusCode,
		}
	}

	return FetchResult{
		url: fetchUrl,
		meta: ResponseMeta{
			statusCode:          resp.StatusCode,
			transferredSizeByte: tw.n,
			contentType:         resp.Header.Get("Content-Type"),
		},
	}, resp.StatusCode, nil
}

// trackingWriter counts bytes and remembers whether a failure came from the
// destination rather than the response body.
type trackingWriter struct {
	w        io.Writer
	n        uint64
	writeErr error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.n += uint64(n)
	if err != nil {
		t.writeErr = err
	} else if n < len(p) {
		t.writeErr = io.ErrShortWrite
		err = io.ErrShortWrite
	}
	return n, err
}

func bodyPreview(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, errorBodyPreviewBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return "<unreadable body>"
	}
	preview := strings.TrimSpace(string(b))
	if preview == "" {
		return "<empty body>"
	}
	return preview
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent": userAgent,
		"Accept":     "audio/mpeg,audio/*;q=0.9,*/*;q=0.5",
	}
}
