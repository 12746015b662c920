package frontier

// FIFOQueue keeps items in the order they were enqueued.
type FIFOQueue[T any] struct {
	items []T
}

func NewFIFOQueue[T any]() *FIFOQueue[T] {
	return &FIFOQueue[T]{}
}

func (f *FIFOQueue[T]) Enqueue(item T) {
	f.items = append(f.items, item)
}

// return false on the second returned values if queue is empty
func (f *FIFOQueue[T]) Dequeue() (T, bool) {
	var zero T
	if len(f.items) == 0 {
		return zero, false
	}
	first := f.items[0]
	f.items[0] = zero
	f.items = f.items[1:]
	return first, true
}

func (f *FIFOQueue[T]) Size() int {
	return len(f.items)
}
