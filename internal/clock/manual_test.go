package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func TestManualTimersFireInOrder(t *testing.T) {
	m := NewManual(epoch)
	var got []string
	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(200*time.Millisecond, func() { got = append(got, "b") })

	m.Advance(150 * time.Millisecond)
	assert.Equal(t, []string{"a"}, got)
	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, epoch.Add(1150*time.Millisecond), m.Now())
}

func TestManualTimerSeesItsDeadline(t *testing.T) {
	m := NewManual(epoch)
	var at time.Time
	m.AfterFunc(250*time.Millisecond, func() { at = m.Now() })
	m.Advance(time.Second)
	assert.Equal(t, epoch.Add(250*time.Millisecond), at)
}

func TestManualTimerRearmDuringAdvance(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		m.AfterFunc(100*time.Millisecond, tick)
	}
	m.AfterFunc(100*time.Millisecond, tick)
	m.Advance(550 * time.Millisecond)
	assert.Equal(t, 5, count)
}

func TestManualCancelTimer(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	h := m.AfterFunc(time.Second, func() { fired = true })
	h.Cancel()
	h.Cancel()
	m.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.Zero(t, m.PendingTimers())
}

func TestManualFrames(t *testing.T) {
	m := NewManual(epoch)
	var seen []time.Time
	var again func(time.Time)
	again = func(now time.Time) {
		seen = append(seen, now)
		if len(seen) < 3 {
			m.RequestFrame(again)
		}
	}
	m.RequestFrame(again)
	m.RunFrames(5, 16*time.Millisecond)
	assert.Len(t, seen, 3)
	assert.Equal(t, epoch.Add(16*time.Millisecond), seen[0])
	assert.Equal(t, epoch.Add(48*time.Millisecond), seen[2])
	assert.Zero(t, m.PendingFrames())
}

func TestManualCancelFrame(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	h := m.RequestFrame(func(time.Time) { ran = true })
	assert.Equal(t, 1, m.PendingFrames())
	h.Cancel()
	m.Frame()
	assert.False(t, ran)
}
