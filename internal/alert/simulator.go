// Package alert manufactures mock emergency events on a timer.
package alert

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/geo"
)

const (
	// DefaultInterval is the gap between two synthetic alerts.
	DefaultInterval = 25 * time.Second
	// DefaultDisplay is how long an alert stays visible.
	DefaultDisplay = 30 * time.Second
)

// Picker chooses an index in [0, n).
type Picker interface {
	Intn(n int) int
}

// Simulator raises an alert for a random subject on every interval tick.
type Simulator struct {
	sched clock.Scheduler
	pick  Picker
	newID func() string
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithPicker overrides the random subject picker.
func WithPicker(p Picker) Option {
	return func(s *Simulator) { s.pick = p }
}

// WithIDFunc overrides event id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Simulator) { s.newID = fn }
}

// NewSimulator creates a simulator scheduling on sched.
func NewSimulator(sched clock.Scheduler, opts ...Option) *Simulator {
	s := &Simulator{
		sched: sched,
		pick:  rand.New(rand.NewSource(time.Now().UnixNano())),
		newID: func() string { return uuid.New().String() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handle stops a running simulator.
type Handle struct {
	stopped bool
	timer   clock.Handle
}

// Cancel stops future interval ticks. Expiries already scheduled still fire.
func (h *Handle) Cancel() {
	if h == nil || h.stopped {
		return
	}
	h.stopped = true
	if h.timer != nil {
		h.timer.Cancel()
	}
}

// Start raises onAlert every interval and onExpire display after each alert.
// Alerts may overlap; showing one at a time is the caller's policy.
func (s *Simulator) Start(roster []Subject, interval, display time.Duration, onAlert, onExpire func(Event)) (*Handle, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: empty subject roster", geo.ErrInvalidArgument)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("%w: alert interval %s", geo.ErrInvalidArgument, interval)
	}
	if display <= 0 {
		return nil, fmt.Errorf("%w: alert display window %s", geo.ErrInvalidArgument, display)
	}
	subjects := append([]Subject(nil), roster...)
	h := &Handle{}

	var tick func()
	tick = func() {
		if h.stopped {
			return
		}
		ev := s.raise(subjects, display)
		s.sched.AfterFunc(display, func() {
			if onExpire != nil {
				onExpire(ev)
			}
		})
		if onAlert != nil {
			onAlert(ev)
		}
		// onAlert may have cancelled us.
		if !h.stopped {
			h.timer = s.sched.AfterFunc(interval, tick)
		}
	}
	h.timer = s.sched.AfterFunc(interval, tick)
	return h, nil
}

// Raise builds a single alert for a random subject without scheduling anything.
func (s *Simulator) Raise(roster []Subject, display time.Duration) (Event, error) {
	if len(roster) == 0 {
		return Event{}, fmt.Errorf("%w: empty subject roster", geo.ErrInvalidArgument)
	}
	if display <= 0 {
		return Event{}, fmt.Errorf("%w: alert display window %s", geo.ErrInvalidArgument, display)
	}
	return s.raise(roster, display), nil
}

func (s *Simulator) raise(roster []Subject, display time.Duration) Event {
	subj := roster[s.pick.Intn(len(roster))]
	now := s.sched.Now()
	return Event{
		ID:        s.newID(),
		Subject:   subj,
		Message:   alertMessage(subj),
		CreatedAt: now,
		ExpiresAt: now.Add(display),
	}
}
