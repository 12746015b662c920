package frontier

/*
Frontier Responsibilities
- Keep admitted work in processing order (document order, then extraction order)
- Deduplicate by dedup key, first occurrence wins
- Knows nothing about:
	- extraction
	- fetching
	- storage

It is a data structure + policy module, not a pipeline executor.
*/

type Frontier struct {
	seen     Set[string]
	queue    *FIFOQueue[WorkItem]
	admitted int
}

func NewFrontier() Frontier {
	return Frontier{
		seen:  NewSet[string](),
		queue: NewFIFOQueue[WorkItem](),
	}
}

// Submit admits item unless its dedup key was already admitted.
// A duplicate is never enqueued.
func (f *Frontier) Submit(item WorkItem) Admission {
	if !f.seen.AddIfAbsent(item.key.DedupKey()) {
		return Duplicate
	}
	f.admitted++
	item.sequence = f.admitted
	f.queue.Enqueue(item)
	return Admitted
}

func (f *Frontier) Dequeue() (WorkItem, bool) {
	return f.queue.Dequeue()
}

// Pending is the number of admitted items not yet dequeued.
func (f *Frontier) Pending() int {
	return f.queue.Size()
}

// AdmittedCount is the number of distinct dedup keys admitted so far.
func (f *Frontier) AdmittedCount() int {
	return f.admitted
}
