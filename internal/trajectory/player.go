// Package trajectory plays an entity along a generated path over wall-clock time.
package trajectory

import (
	"fmt"
	"time"

	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/geo"
)

// DefaultDuration is the fixed length of one animated movement.
const DefaultDuration = 2000 * time.Millisecond

// Entity is a moving object whose Position is the live state. While
// Animating is set only the Player writes Position.
type Entity struct {
	ID        string
	Position  geo.Point
	Path      geo.Path
	Animating bool
}

// TickFunc observes one frame of a session.
type TickFunc func(e *Entity, p geo.Point, progress float64)

// CompleteFunc observes the end of a session that ran to progress 1.
type CompleteFunc func(e *Entity)

// Player owns every running animation session. Sessions live in an arena of
// slots indexed by entity ID; a slot's generation is bumped whenever its
// session ends, which invalidates outstanding handles and frame callbacks.
//
// Player is not safe for concurrent use; call it from the scheduler's thread.
type Player struct {
	sched clock.Scheduler
	slots []slot
	free  []int
	byID  map[string]int
}

type slot struct {
	gen        uint64
	live       bool
	entity     *Entity
	path       geo.Path
	start      time.Time
	duration   time.Duration
	onTick     TickFunc
	onComplete CompleteFunc
	frame      clock.Handle
}

// Handle cancels one session.
type Handle struct {
	p   *Player
	idx int
	gen uint64
}

// Cancel stops the session: no further ticks fire and onComplete is never
// called. Cancelling a finished or superseded session does nothing.
func (h Handle) Cancel() {
	if h.p != nil {
		h.p.cancel(h.idx, h.gen)
	}
}

// Active reports whether the session is still running.
func (h Handle) Active() bool {
	return h.p != nil && h.p.current(h.idx, h.gen)
}

// NewPlayer returns a player driven by sched.
func NewPlayer(sched clock.Scheduler) *Player {
	return &Player{sched: sched, byID: make(map[string]int)}
}

// Start animates e along path over d. A session already running for e.ID is
// cancelled first, so the newest request is the only writer.
func (p *Player) Start(e *Entity, path geo.Path, d time.Duration, onTick TickFunc, onComplete CompleteFunc) (Handle, error) {
	switch {
	case e == nil:
		return Handle{}, fmt.Errorf("%w: nil entity", geo.ErrInvalidArgument)
	case e.ID == "":
		return Handle{}, fmt.Errorf("%w: entity without id", geo.ErrInvalidArgument)
	case path.Len() < 2:
		return Handle{}, fmt.Errorf("%w: path needs at least 2 points, got %d", geo.ErrInvalidArgument, path.Len())
	case d <= 0:
		return Handle{}, fmt.Errorf("%w: duration %s", geo.ErrInvalidArgument, d)
	}

	if idx, ok := p.byID[e.ID]; ok {
		p.release(idx)
	}

	idx := p.alloc()
	s := &p.slots[idx]
	s.live = true
	s.entity = e
	s.path = path
	s.start = p.sched.Now()
	s.duration = d
	s.onTick = onTick
	s.onComplete = onComplete
	p.byID[e.ID] = idx

	e.Path = path
	e.Animating = true

	gen := s.gen
	s.frame = p.sched.RequestFrame(p.frame(idx, gen))
	return Handle{p: p, idx: idx, gen: gen}, nil
}

// Cancel stops the session of the given entity, if any.
func (p *Player) Cancel(id string) {
	if idx, ok := p.byID[id]; ok {
		p.release(idx)
	}
}

// CancelAll stops every session, as on teardown.
func (p *Player) CancelAll() {
	for _, idx := range p.byID {
		p.release(idx)
	}
}

// Active reports whether an entity is currently animating.
func (p *Player) Active(id string) bool {
	_, ok := p.byID[id]
	return ok
}

// ActiveCount returns the number of running sessions.
func (p *Player) ActiveCount() int {
	return len(p.byID)
}

func (p *Player) frame(idx int, gen uint64) clock.FrameFunc {
	return func(now time.Time) {
		if !p.current(idx, gen) {
			return
		}
		s := &p.slots[idx]
		progress := float64(now.Sub(s.start)) / float64(s.duration)
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
		e := s.entity
		pt := s.path.Sample(progress)
		e.Position = pt
		if s.onTick != nil {
			s.onTick(e, pt, progress)
		}
		// onTick may have cancelled or replaced this session.
		if !p.current(idx, gen) {
			return
		}
		s = &p.slots[idx]
		if progress < 1 {
			s.frame = p.sched.RequestFrame(p.frame(idx, gen))
			return
		}
		done := s.onComplete
		p.release(idx)
		if done != nil {
			done(e)
		}
	}
}

func (p *Player) current(idx int, gen uint64) bool {
	if idx < 0 || idx >= len(p.slots) {
		return false
	}
	s := &p.slots[idx]
	return s.live && s.gen == gen
}

func (p *Player) cancel(idx int, gen uint64) {
	if p.current(idx, gen) {
		p.release(idx)
	}
}

func (p *Player) alloc() int {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return idx
	}
	p.slots = append(p.slots, slot{})
	return len(p.slots) - 1
}

func (p *Player) release(idx int) {
	s := &p.slots[idx]
	if !s.live {
		return
	}
	if s.frame != nil {
		s.frame.Cancel()
	}
	if s.entity != nil {
		s.entity.Animating = false
		s.entity.Path = nil
		if cur, ok := p.byID[s.entity.ID]; ok && cur == idx {
			delete(p.byID, s.entity.ID)
		}
	}
	*s = slot{gen: s.gen + 1}
	p.free = append(p.free, idx)
}
