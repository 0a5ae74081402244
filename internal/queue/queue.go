package queue

import (
	"iter"
	"sync"
)

// Queue is a generic thread-safe queue used to buffer commands between ticks.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain returns all queued items in arrival order and empties the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}

// Ring is a fixed-capacity FIFO that drops its oldest item on overflow.
// It is not safe for concurrent use.
type Ring[T any] struct {
	items []T
	head  int // index of the oldest item
	size  int
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends item, dropping the oldest one if the ring is full.
func (r *Ring[T]) Push(item T) {
	if r.size == len(r.items) {
		r.items[r.head] = item
		r.head = (r.head + 1) % len(r.items)
		return
	}
	r.items[(r.head+r.size)%len(r.items)] = item
	r.size++
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.items) }

// At returns the i-th item counting from the oldest.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.size {
		panic("queue: ring index out of range")
	}
	return r.items[(r.head+i)%len(r.items)]
}

// Oldest returns the oldest item, if any.
func (r *Ring[T]) Oldest() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.At(0), true
}

// Newest returns the most recently pushed item, if any.
func (r *Ring[T]) Newest() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.At(r.size - 1), true
}

// Clear drops every item.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head, r.size = 0, 0
}

// All iterates from the oldest item to the newest.
func (r *Ring[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < r.size; i++ {
			if !yield(i, r.At(i)) {
				return
			}
		}
	}
}
