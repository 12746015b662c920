package fetcher

import (
	"context"
	"io"

	"github.com/rohmanhakim/deck-voice/pkg/failure"
)

// Fetcher requests the audio for one text and streams it into dst.
// Bytes reach dst only for a 200 answer; a failure may leave a partial body
// there, so dst must be something the caller can discard.
type Fetcher interface {
	Fetch(
		ctx context.Context,
		fetchParam FetchParam,
		dst io.Writer,
	) (FetchResult, failure.ClassifiedError)
}
