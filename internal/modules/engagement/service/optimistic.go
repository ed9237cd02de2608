package service

import "sync"

// Optimistic holds a value that is updated tentatively before the authoritative
// result is known. Apply publishes the tentative value; Resolve either keeps it or
// restores exactly the value that was current before Apply.
type Optimistic[T any] struct {
	mu      sync.Mutex
	current T
	prior   T
	pending bool
}

func NewOptimistic[T any](initial T) *Optimistic[T] {
	return &Optimistic[T]{current: initial}
}

func (o *Optimistic[T]) Value() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Apply stores tentative as the current value and returns it. Applying again before
// Resolve keeps the original prior value.
func (o *Optimistic[T]) Apply(tentative T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.pending {
		o.prior = o.current
		o.pending = true
	}
	o.current = tentative
	return o.current
}

// Resolve commits the tentative value when err is nil and rolls back otherwise.
// It returns the value that is current afterwards.
func (o *Optimistic[T]) Resolve(err error) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending && err != nil {
		o.current = o.prior
	}
	o.pending = false
	return o.current
}

// LikeState is the liked flag and like count shown for a post.
type LikeState struct {
	Liked bool
	Count int64
}

// Toggled is the state after flipping the like.
func (s LikeState) Toggled() LikeState {
	if s.Liked {
		next := LikeState{Liked: false, Count: s.Count - 1}
		if next.Count < 0 {
			next.Count = 0
		}
		return next
	}
	return LikeState{Liked: true, Count: s.Count + 1}
}
