// Package controller holds the presentation-facing state machines: the auth
// session controller and the trip list, create and detail controllers.
// Each exposes its state as an observable value plus one-shot effects, and
// never lets an operation error escape without also reflecting it in state
// or an effect.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// EffectKind names a one-shot UI instruction.
type EffectKind string

const (
	EffectNavigateToMain                EffectKind = "navigate_to_main"
	EffectNavigateToLogin               EffectKind = "navigate_to_login"
	EffectShowSuccessMessage            EffectKind = "show_success_message"
	EffectShowErrorMessage              EffectKind = "show_error_message"
	EffectShowPasswordResetConfirmation EffectKind = "show_password_reset_confirmation"
)

// Effect is delivered to subscribers at most once and is never replayed.
type Effect struct {
	Kind    EffectKind `json:"kind"`
	Message string     `json:"message,omitempty"`
	Email   string     `json:"email,omitempty"`
}

const defaultEffectBuffer = 16

// effectBus fans effects out to subscribers. A subscriber whose buffer is
// full misses the effect; the drop is logged.
type effectBus struct {
	mu     sync.Mutex
	subs   map[uint64]chan Effect
	next   uint64
	size   int
	logger *slog.Logger
}

func newEffectBus(size int, logger *slog.Logger) *effectBus {
	if size <= 0 {
		size = defaultEffectBuffer
	}
	return &effectBus{subs: make(map[uint64]chan Effect), size: size, logger: logger}
}

func (b *effectBus) subscribe(ctx context.Context) <-chan Effect {
	ch := make(chan Effect, b.size)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}

func (b *effectBus) emit(e Effect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("effect dropped, subscriber not keeping up", "kind", e.Kind)
		}
	}
}

// cause returns the message of the innermost wrapped error, which is the
// part worth showing to a user.
func cause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
