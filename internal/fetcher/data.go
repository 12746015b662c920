package fetcher

import (
	"net/url"
	"time"
)

// HTTP boundary

type FetchParam struct {
	text    string
	attempt int
}

// NewFetchParam describes one synthesis request. attempt is 1-based and
// only used for reporting.
func NewFetchParam(text string, attempt int) FetchParam {
	return FetchParam{
		text:    text,
		attempt: attempt,
	}
}

func (p FetchParam) Text() string {
	return p.text
}

func (p FetchParam) Attempt() int {
	return p.attempt
}

type FetchResult struct {
	url  url.URL
	meta ResponseMeta
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

func (f *FetchResult) Duration() time.Duration {
	return f.meta.duration
}

type ResponseMeta struct {
	statusCode          int
	transferredSizeByte uint64
	contentType         string
	duration            time.Duration
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	statusCode int,
	contentType string,
	transferredSizeByte uint64,
	duration time.Duration,
) FetchResult {
	return FetchResult{
		url: url,
		meta: ResponseMeta{
			statusCode:          statusCode,
			transferredSizeByte: transferredSizeByte,
			contentType:         contentType,
			duration:            duration,
		},
	}
}
