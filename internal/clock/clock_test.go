package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pkordes/globaltrip/backend/internal/clock"
)

var epoch = time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC)

func TestFake_AfterFunc_FiresOnAdvance(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false
	c.AfterFunc(300*time.Millisecond, func() { fired = true })

	c.Advance(299 * time.Millisecond)
	assert.False(t, fired)

	c.Advance(time.Millisecond)
	assert.True(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_AfterFunc_Stop(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Hour)
	assert.False(t, fired)
}

func TestFake_Advance_FiresInDeadlineOrder(t *testing.T) {
	c := clock.NewFake(epoch)
	var order []int
	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(time.Second, func() { order = append(order, 1) })
	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	c.Advance(5 * time.Second)

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestFake_AfterFunc_NonPositiveRunsImmediately(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false

	timer := c.AfterFunc(0, func() { fired = true })

	assert.True(t, fired)
	assert.False(t, timer.Stop())
}

func TestFake_Set_MovesNowWithoutFiring(t *testing.T) {
	c := clock.NewFake(epoch)
	fired := false
	c.AfterFunc(time.Minute, func() { fired = true })

	c.Set(epoch.AddDate(0, 0, 1))

	assert.Equal(t, epoch.AddDate(0, 0, 1), c.Now())
	assert.False(t, fired)
	assert.Equal(t, 1, c.Pending())
}

func TestFake_WaitForTimers(t *testing.T) {
	c := clock.NewFake(epoch)
	go c.AfterFunc(time.Second, func() {})

	c.WaitForTimers(1)

	assert.Equal(t, 1, c.Pending())
}
