package replay

import (
	"errors"
	"fmt"
	"time"

	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/trajectory"
)

const (
	// LegDuration is the animation time between two consecutive events.
	LegDuration = 2000 * time.Millisecond
	// WaypointPause is the dwell time at each intermediate event.
	WaypointPause = 500 * time.Millisecond
)

// ErrBusy is returned by Start while a replay is already running.
var ErrBusy = errors.New("replay already running")

// StepFunc is called when the drone reaches event i.
type StepFunc func(i int, ev Event)

// MoveFunc observes every animated position.
type MoveFunc func(droneID string, p geo.Point, progress float64)

// Replayer flies one mission at a time, leg by leg.
// Not safe for concurrent use; drive it from the scheduler's thread.
type Replayer struct {
	sched  clock.Scheduler
	player *trajectory.Player
	leg    time.Duration
	pause  time.Duration
	onMove MoveFunc

	mission *Mission
	entity  *trajectory.Entity
	running bool
	step    int
	timer   clock.Handle
	gen     uint64
	err     error
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithLegDuration overrides LegDuration.
func WithLegDuration(d time.Duration) Option {
	return func(r *Replayer) { r.leg = d }
}

// WithPause overrides WaypointPause.
func WithPause(d time.Duration) Option {
	return func(r *Replayer) { r.pause = d }
}

// WithMoveFunc registers a position observer.
func WithMoveFunc(fn MoveFunc) Option {
	return func(r *Replayer) { r.onMove = fn }
}

// NewReplayer creates a replayer sharing sched and player with the rest of
// the simulation.
func NewReplayer(sched clock.Scheduler, player *trajectory.Player, opts ...Option) *Replayer {
	r := &Replayer{sched: sched, player: player, leg: LegDuration, pause: WaypointPause}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start replays m from its first event. onStep fires for event 0 right away
// and for every later event when the drone reaches it; onDone fires after the
// last one.
func (r *Replayer) Start(m Mission, onStep StepFunc, onDone func()) error {
	if r.running {
		return ErrBusy
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if r.leg <= 0 || r.pause < 0 {
		return fmt.Errorf("%w: leg %s pause %s", geo.ErrInvalidArgument, r.leg, r.pause)
	}
	r.gen++
	r.err = nil
	r.mission = &m
	r.entity = &trajectory.Entity{ID: "replay:" + m.DroneID, Position: m.Events[0].Coordinates}
	r.running = true
	r.step = 0
	if onStep != nil {
		onStep(0, m.Events[0])
	}
	return r.fly(0, r.gen, onStep, onDone)
}

func (r *Replayer) fly(i int, gen uint64, onStep StepFunc, onDone func()) error {
	evs := r.mission.Events
	path, err := geo.LinearPath(evs[i].Coordinates, evs[i+1].Coordinates, geo.SamplesPerLeg)
	if err != nil {
		r.running = false
		return err
	}
	droneID := r.mission.DroneID
	tick := func(_ *trajectory.Entity, p geo.Point, progress float64) {
		if r.onMove != nil {
			r.onMove(droneID, p, progress)
		}
	}
	done := func(*trajectory.Entity) {
		if gen != r.gen {
			return
		}
		r.step = i + 1
		if onStep != nil {
			onStep(i+1, evs[i+1])
		}
		if gen != r.gen {
			return
		}
		if i+1 == len(evs)-1 {
			r.running = false
			if onDone != nil {
				onDone()
			}
			return
		}
		r.timer = r.sched.AfterFunc(r.pause, func() {
			if gen != r.gen {
				return
			}
			r.timer = nil
			if err := r.fly(i+1, gen, onStep, onDone); err != nil {
				r.err = fmt.Errorf("leg %d: %w", i+1, err)
				if onDone != nil {
					onDone()
				}
			}
		})
	}
	_, err = r.player.Start(r.entity, path, r.leg, tick, done)
	if err != nil {
		r.running = false
	}
	return err
}

// Reset stops the replay and puts the drone back on the first event. The
// move observer sees the drone land there with progress 0.
func (r *Replayer) Reset() {
	r.gen++
	if r.timer != nil {
		r.timer.Cancel()
		r.timer = nil
	}
	r.running = false
	r.step = 0
	if r.entity == nil {
		return
	}
	r.player.Cancel(r.entity.ID)
	start := r.mission.Events[0].Coordinates
	r.entity.Position = start
	if r.onMove != nil {
		r.onMove(r.mission.DroneID, start, 0)
	}
}

// Err returns the error that ended the last replay early, if any.
func (r *Replayer) Err() error { return r.err }

// DroneID returns the drone of the current or last mission.
func (r *Replayer) DroneID() string {
	if r.mission == nil {
		return ""
	}
	return r.mission.DroneID
}

// Running reports whether a replay is in progress.
func (r *Replayer) Running() bool { return r.running }

// Step returns the index of the last event reached.
func (r *Replayer) Step() int { return r.step }

// Position returns the replayed drone's position.
func (r *Replayer) Position() (geo.Point, bool) {
	if r.entity == nil {
		return geo.Point{}, false
	}
	return r.entity.Position, true
}
