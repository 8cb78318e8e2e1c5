// Package broadcast provides a minimal publish/subscribe value holder.
//
// A Broadcast keeps a single current value and a list of subscribers. Every
// SetState call stores the new value and then invokes each subscriber
// synchronously, in subscription order, on the calling goroutine.
package broadcast

import (
	"sync"
	"sync/atomic"
)

// Broadcast holds the current value of type T and its subscribers.
// The zero value is ready to use.
type Broadcast[T any] struct {
	mu     sync.Mutex
	state  T
	subs   []*subscription[T]
	nextID uint64
}

type subscription[T any] struct {
	id     uint64
	fn     func(T)
	active atomic.Bool
}

// New returns a Broadcast seeded with an initial value.
func New[T any](initial T) *Broadcast[T] {
	return &Broadcast[T]{state: initial}
}

// State returns the current value.
func (b *Broadcast[T]) State() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetState replaces the current value and notifies every subscriber that was
// registered when the call started. Subscribers added by a callback are not
// invoked for this call; subscribers removed by a callback are skipped.
func (b *Broadcast[T]) SetState(v T) {
	b.mu.Lock()
	b.state = v
	snapshot := make([]*subscription[T], len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, s := range snapshot {
		if !s.active.Load() {
			continue
		}
		s.fn(v)
	}
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (b *Broadcast[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	s := &subscription[T]{id: b.nextID, fn: fn}
	s.active.Store(true)
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return func() {
		if !s.active.CompareAndSwap(true, false) {
			return
		}
		b.remove(s.id)
	}
}

// Len returns the number of active subscribers.
func (b *Broadcast[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcast[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
