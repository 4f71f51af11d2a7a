package logstore

// Ring is a bounded FIFO buffer. Pushing into a full ring evicts the oldest
// item. Storage grows with use up to the capacity.
type Ring[T any] struct {
	items    []T
	head     int
	capacity int
}

// NewRing returns a ring holding at most capacity items (minimum 1).
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{capacity: capacity}
}

// Push appends v and reports whether an older item was evicted.
func (r *Ring[T]) Push(v T) (evicted bool) {
	if len(r.items) < r.capacity {
		r.items = append(r.items, v)
		return false
	}
	r.items[r.head] = v
	r.head = (r.head + 1) % r.capacity
	return true
}

// Len returns the number of buffered items.
func (r *Ring[T]) Len() int { return len(r.items) }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return r.capacity }

// Items copies the buffered items, oldest first.
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, len(r.items))
	out = append(out, r.items[r.head:]...)
	return append(out, r.items[:r.head]...)
}
