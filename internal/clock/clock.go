// Package clock provides the time source and callback scheduler that drive
// the simulation. Everything scheduled here runs on a single logical thread.
package clock

import (
	"context"
	"time"
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = time.Second / 60

// FrameFunc runs once on the next frame with that frame's timestamp.
type FrameFunc func(now time.Time)

// Handle cancels a pending frame or timer callback. Cancel is idempotent and
// safe to call after the callback already ran.
type Handle interface {
	Cancel()
}

// Scheduler is the host callback queue: per-frame callbacks for animation
// and one-shot timers for everything else.
type Scheduler interface {
	Now() time.Time
	RequestFrame(fn FrameFunc) Handle
	AfterFunc(d time.Duration, fn func()) Handle
}

// Executor runs fn on the scheduler's thread and waits for it to return.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// HandleFunc adapts a plain function to Handle.
type HandleFunc func()

// Cancel calls f.
func (f HandleFunc) Cancel() { f() }
