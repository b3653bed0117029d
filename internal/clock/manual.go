package clock

import (
	"context"
	"sort"
	"time"
)

// Manual is a deterministic Scheduler for tests and offline runs. Time only
// moves when Advance or Step is called.
type Manual struct {
	now    time.Time
	nextID uint64
	frames []manualFrame
	timers []*manualTimer
}

type manualFrame struct {
	id uint64
	fn FrameFunc
}

type manualTimer struct {
	id   uint64
	at   time.Time
	fn   func()
	dead bool
}

// NewManual returns a scheduler frozen at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the simulated time.
func (m *Manual) Now() time.Time { return m.now }

// RequestFrame queues fn for the next Frame call.
func (m *Manual) RequestFrame(fn FrameFunc) Handle {
	m.nextID++
	id := m.nextID
	m.frames = append(m.frames, manualFrame{id: id, fn: fn})
	return HandleFunc(func() {
		for i, f := range m.frames {
			if f.id == id {
				m.frames = append(m.frames[:i], m.frames[i+1:]...)
				return
			}
		}
	})
}

// AfterFunc schedules fn at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.nextID++
	t := &manualTimer{id: m.nextID, at: m.now.Add(d), fn: fn}
	m.timers = append(m.timers, t)
	return HandleFunc(func() { t.dead = true })
}

// Do runs fn immediately; Manual has no separate thread.
func (m *Manual) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// PendingFrames returns the number of queued frame callbacks.
func (m *Manual) PendingFrames() int { return len(m.frames) }

// PendingTimers returns the number of live timers.
func (m *Manual) PendingTimers() int {
	n := 0
	for _, t := range m.timers {
		if !t.dead {
			n++
		}
	}
	return n
}

// Frame runs the callbacks queued before the call at the current time.
func (m *Manual) Frame() {
	frames := m.frames
	m.frames = nil
	for _, f := range frames {
		f.fn(m.now)
	}
}

// Advance moves time forward by d, firing due timers in deadline order.
// No frames are run.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		if t.at.After(m.now) {
			m.now = t.at
		}
		t.dead = true
		t.fn()
	}
	m.now = target
	m.compact()
}

// Step advances time by d and then runs one frame, like a display refresh.
func (m *Manual) Step(d time.Duration) {
	m.Advance(d)
	m.Frame()
}

// RunFrames steps n frames of length d.
func (m *Manual) RunFrames(n int, d time.Duration) {
	for i := 0; i < n; i++ {
		m.Step(d)
	}
}

func (m *Manual) nextDue(target time.Time) *manualTimer {
	var due []*manualTimer
	for _, t := range m.timers {
		if !t.dead && !t.at.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})
	return due[0]
}

func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.dead {
			live = append(live, t)
		}
	}
	m.timers = live
}
