package clock

import (
	"context"
	"errors"
	"sync"
	"time"

	"droneops-dispatch/internal/logging"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("loop stopped")

// Loop is a real-time Scheduler. Frame callbacks, timer callbacks and work
// posted through Do all run on the goroutine that called Run.
type Loop struct {
	frameInterval time.Duration
	now           func() time.Time

	mu      sync.Mutex
	nextID  uint64
	frames  map[uint64]FrameFunc
	order   []uint64
	timers  map[uint64]*time.Timer
	work    chan func()
	done    chan struct{}
	stopped bool
}

// NewLoop creates a loop that flushes frame callbacks every frameInterval.
func NewLoop(frameInterval time.Duration) *Loop {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	return &Loop{
		frameInterval: frameInterval,
		now:           time.Now,
		frames:        make(map[uint64]FrameFunc),
		timers:        make(map[uint64]*time.Timer),
		work:          make(chan func(), 256),
		done:          make(chan struct{}),
	}
}

// Now returns the wall clock time.
func (l *Loop) Now() time.Time { return l.now() }

// RequestFrame queues fn for the next frame.
func (l *Loop) RequestFrame(fn FrameFunc) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.frames[id] = fn
	l.order = append(l.order, id)
	return HandleFunc(func() {
		l.mu.Lock()
		delete(l.frames, id)
		l.mu.Unlock()
	})
}

// AfterFunc runs fn on the loop goroutine once d has elapsed.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	live := true
	l.timers[id] = time.AfterFunc(d, func() {
		l.post(func() {
			l.mu.Lock()
			ok := live
			live = false
			delete(l.timers, id)
			l.mu.Unlock()
			if ok {
				fn()
			}
		})
	})
	return HandleFunc(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		live = false
		if t, ok := l.timers[id]; ok {
			t.Stop()
			delete(l.timers, id)
		}
	})
}

// Do posts fn to the loop and blocks until it has run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if !l.post(func() {
		fn()
		close(ran)
	}) {
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) post(fn func()) bool {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return false
	}
	select {
	case l.work <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run processes callbacks until ctx is cancelled. Pending timers are stopped
// on exit.
func (l *Loop) Run(ctx context.Context) {
	log := logging.FromContext(ctx).With("component", "loop")
	log.Info("starting event loop", "frame_interval", l.frameInterval)
	ticker := time.NewTicker(l.frameInterval)
	defer ticker.Stop()
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping event loop")
			return
		case fn := <-l.work:
			fn()
		case <-ticker.C:
			l.flushFrames()
		}
	}
}

// flushFrames runs every callback requested before this frame started.
// Callbacks requested while flushing wait for the next frame.
func (l *Loop) flushFrames() {
	l.mu.Lock()
	order := l.order
	l.order = nil
	l.mu.Unlock()

	now := l.now()
	for _, id := range order {
		l.mu.Lock()
		fn, ok := l.frames[id]
		delete(l.frames, id)
		l.mu.Unlock()
		if ok {
			fn(now)
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	close(l.done)
}
