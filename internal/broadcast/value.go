// Package broadcast provides a single-writer observable value.
//
// Each subscriber gets its own channel with a one-slot buffer. A slow
// subscriber never blocks the writer: an unread value is replaced by the
// newer one, so every subscriber always sees the latest state.
package broadcast

import (
	"context"
	"sync"
)

// Value holds the current state of T and fans changes out to subscribers.
type Value[T any] struct {
	mu   sync.Mutex
	cur  T
	subs map[uint64]chan T
	next uint64
}

// NewValue returns a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, subs: make(map[uint64]chan T)}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set replaces the current value and notifies every subscriber.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = x
	v.publishLocked()
}

// Update applies fn to the current value atomically, publishes the result
// and returns it.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = fn(v.cur)
	v.publishLocked()
	return v.cur
}

// Subscribe returns a channel that immediately receives the current value
// and then every subsequent one. The channel is closed when ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	v.mu.Lock()
	id := v.next
	v.next++
	v.subs[id] = ch
	ch <- v.cur
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, id)
		close(ch)
		v.mu.Unlock()
	}()
	return ch
}

// Subscribers returns the number of live subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

func (v *Value[T]) publishLocked() {
	for _, ch := range v.subs {
		select {
		case ch <- v.cur:
			continue
		default:
		}
		// Drop the stale value and retry; only publishLocked sends, so the
		// slot is free after the drain.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v.cur:
		default:
		}
	}
}
