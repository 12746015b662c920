package frontier

import (
	"github.com/rohmanhakim/deck-voice/internal/extractor"
	"github.com/rohmanhakim/deck-voice/internal/normalize"
)

// WorkItem is a fragment that has been admitted for cache lookup and fetching.
// Frontier MUST assume the key was derived by normalize.Normalize.
type WorkItem struct {
	fragment extractor.Fragment
	key      normalize.Key
	sequence int
}

func NewWorkItem(fragment extractor.Fragment, key normalize.Key) WorkItem {
	return WorkItem{
		fragment: fragment,
		key:      key,
	}
}

func (w WorkItem) Fragment() extractor.Fragment {
	return w.fragment
}

func (w WorkItem) Key() normalize.Key {
	return w.key
}

// Sequence is the 1-based admission position.
func (w WorkItem) Sequence() int {
	return w.sequence
}

type Admission int

const (
	// Admitted means the dedup key was seen for the first time.
	Admitted Admission = iota
	// Duplicate means an earlier item with the same dedup key was admitted.
	Duplicate
)

func (a Admission) String() string {
	switch a {
	case Admitted:
		return "admitted"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}
