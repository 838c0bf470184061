package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/globaltrip/backend/internal/broadcast"
)

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestValue_Subscribe_ReceivesCurrentThenUpdates(t *testing.T) {
	v := broadcast.NewValue(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Subscribe(ctx)
	assert.Equal(t, 1, recv(t, ch))

	v.Set(2)
	assert.Equal(t, 2, recv(t, ch))
}

func TestValue_SlowSubscriber_SeesLatest(t *testing.T) {
	v := broadcast.NewValue("a")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := v.Subscribe(ctx)
	v.Set("b")
	v.Set("c")

	assert.Equal(t, "c", recv(t, ch))
	assert.Equal(t, "c", v.Get())
}

func TestValue_Update(t *testing.T) {
	v := broadcast.NewValue(10)

	got := v.Update(func(n int) int { return n + 5 })

	assert.Equal(t, 15, got)
	assert.Equal(t, 15, v.Get())
}

func TestValue_CancelClosesChannel(t *testing.T) {
	v := broadcast.NewValue(0)
	ctx, cancel := context.WithCancel(context.Background())

	ch := v.Subscribe(ctx)
	recv(t, ch)
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, v.Subscribers())

	v.Set(1) // must not panic on the closed subscription
}
