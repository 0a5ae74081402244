// Package perception holds frame-scoped caches for expensive spatial queries.
//
// Every cached value carries the frame it was computed at. A value read in a
// later frame is recomputed; nothing else ever invalidates it.
package perception

import "github.com/OCAP2/awareness/pkg/core"

// Lazy memoizes one value for the duration of a frame.
type Lazy[T any] struct {
	value      T
	computedAt core.Frame
	valid      bool
}

// Get returns the cached value if it was computed in frame, otherwise it
// calls compute and caches the result.
func (l *Lazy[T]) Get(frame core.Frame, compute func() T) T {
	if l.valid && l.computedAt == frame {
		return l.value
	}
	l.value = compute()
	l.computedAt = frame
	l.valid = true
	return l.value
}

// Peek returns the cached value and whether it belongs to frame.
func (l *Lazy[T]) Peek(frame core.Frame) (T, bool) {
	return l.value, l.valid && l.computedAt == frame
}

func (l *Lazy[T]) Invalidate() {
	var zero T
	l.value = zero
	l.valid = false
}
