package replay

import (
	"errors"
	"math"
	"testing"
	"time"

	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/trajectory"
)

const frame = time.Second / 60

func newReplayer(opts ...Option) (*Replayer, *clock.Manual) {
	m := clock.NewManual(time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC))
	return NewReplayer(m, trajectory.NewPlayer(m), opts...), m
}

func TestLoadMission(t *testing.T) {
	m, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load mission: %v", err)
	}
	if m.ID != "short-hop" || m.DroneID != "D1" {
		t.Fatalf("unexpected mission %s/%s", m.ID, m.DroneID)
	}
	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[1].Type != EventDelivery {
		t.Fatalf("unexpected event type %s", m.Events[1].Type)
	}
	if m.Events[0].DroneID != "D1" {
		t.Fatalf("event drone id not inherited: %q", m.Events[0].DroneID)
	}
	want := time.Date(2024, 3, 20, 9, 2, 0, 0, time.UTC)
	if !m.Events[1].Timestamp.Equal(want) {
		t.Fatalf("unexpected timestamp %s", m.Events[1].Timestamp)
	}
	if m.Events[1].Coordinates != geo.Pt(13.85, 46.38) {
		t.Fatalf("unexpected coordinates %v", m.Events[1].Coordinates)
	}
	if len(m.Stations) != 1 || m.Stations[0].Position != geo.Pt(13.845, 46.378) {
		t.Fatalf("unexpected stations %+v", m.Stations)
	}
}

func TestLoadRejectsShortMission(t *testing.T) {
	if _, err := Load("testdata/short.yaml"); !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := Load("testdata/missing.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBuiltInMissions(t *testing.T) {
	m, ok := BuiltIn()["triglav-d3"]
	if !ok {
		t.Fatal("triglav-d3 not found")
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	types := []EventType{EventStart, EventWaypoint, EventDelivery}
	for i, ty := range types {
		if m.Events[i].Type != ty {
			t.Fatalf("event %d expected %s got %s", i, ty, m.Events[i].Type)
		}
	}
	route := m.RoutePath()
	if route.Len() != 8 || route.First() != m.Events[0].Coordinates || route.Last() != m.Events[2].Coordinates {
		t.Fatalf("unexpected route %v", route)
	}
}

func TestReplayVisitsEveryStep(t *testing.T) {
	var moves int
	r, m := newReplayer(WithMoveFunc(func(id string, _ geo.Point, _ float64) {
		if id != "D3" {
			t.Fatalf("unexpected drone %s", id)
		}
		moves++
	}))
	mission := BuiltIn()["triglav-d3"]

	var steps []int
	done := 0
	if err := r.Start(mission, func(i int, _ Event) { steps = append(steps, i) }, func() { done++ }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Running() {
		t.Fatal("expected running replay")
	}
	if err := r.Start(mission, nil, nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}

	// first leg
	m.RunFrames(125, frame)
	if len(steps) != 2 || r.Step() != 1 {
		t.Fatalf("expected to be at the waypoint, steps=%v", steps)
	}
	if p, _ := r.Position(); p != mission.Events[1].Coordinates {
		t.Fatalf("expected waypoint position, got %v", p)
	}

	// dwell at the waypoint, nothing moves
	before := moves
	m.RunFrames(20, frame)
	if moves != before {
		t.Fatalf("drone moved during the waypoint pause")
	}

	m.RunFrames(300, frame)
	if len(steps) != 3 || steps[0] != 0 || steps[1] != 1 || steps[2] != 2 {
		t.Fatalf("unexpected steps %v", steps)
	}
	if done != 1 {
		t.Fatalf("expected one completion, got %d", done)
	}
	if r.Running() {
		t.Fatal("replay should have stopped")
	}
	if p, _ := r.Position(); p != mission.Events[2].Coordinates {
		t.Fatalf("expected delivery position, got %v", p)
	}
}

func TestResetMidLeg(t *testing.T) {
	r, m := newReplayer()
	mission := BuiltIn()["triglav-d3"]
	var steps []int
	if err := r.Start(mission, func(i int, _ Event) { steps = append(steps, i) }, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.RunFrames(60, frame)
	r.Reset()

	if r.Running() || r.Step() != 0 {
		t.Fatalf("reset left running=%v step=%d", r.Running(), r.Step())
	}
	if p, _ := r.Position(); p != mission.Events[0].Coordinates {
		t.Fatalf("expected start position after reset, got %v", p)
	}
	m.RunFrames(400, frame)
	if len(steps) != 1 {
		t.Fatalf("no steps expected after reset, got %v", steps)
	}
	if p, _ := r.Position(); p != mission.Events[0].Coordinates {
		t.Fatalf("drone moved after reset: %v", p)
	}
}

func TestResetDuringPause(t *testing.T) {
	r, m := newReplayer()
	mission := BuiltIn()["triglav-d3"]
	done := false
	if err := r.Start(mission, nil, func() { done = true }); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.RunFrames(125, frame)
	if r.Step() != 1 {
		t.Fatalf("expected waypoint step, got %d", r.Step())
	}
	r.Reset()
	m.RunFrames(400, frame)
	if done || r.Step() != 0 {
		t.Fatalf("replay continued after reset: done=%v step=%d", done, r.Step())
	}

	// a fresh start after reset runs to completion
	if err := r.Start(mission, nil, func() { done = true }); err != nil {
		t.Fatalf("restart: %v", err)
	}
	m.RunFrames(400, frame)
	if !done {
		t.Fatal("restarted replay did not finish")
	}
}

func TestStartRejectsInvalidMission(t *testing.T) {
	r, _ := newReplayer()
	err := r.Start(Mission{ID: "x", Events: []Event{{Coordinates: geo.Pt(1, 1)}}}, nil, nil)
	if !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if r.Running() {
		t.Fatal("invalid mission must not start")
	}
}

func TestResetReportsStartPosition(t *testing.T) {
	type move struct {
		id       string
		p        geo.Point
		progress float64
	}
	var moves []move
	r, m := newReplayer(WithMoveFunc(func(id string, p geo.Point, progress float64) {
		moves = append(moves, move{id, p, progress})
	}))
	mission := BuiltIn()["triglav-d3"]
	if err := r.Start(mission, nil, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.RunFrames(60, frame)
	n := len(moves)
	r.Reset()
	if len(moves) != n+1 {
		t.Fatalf("expected one move on reset, got %d", len(moves)-n)
	}
	last := moves[len(moves)-1]
	if last.id != "D3" || last.p != mission.Events[0].Coordinates || last.progress != 0 {
		t.Fatalf("unexpected reset move %+v", last)
	}
}

func TestFailedLegEndsReplay(t *testing.T) {
	r, m := newReplayer()
	mission := BuiltIn()["triglav-d3"]
	done := 0
	if err := r.Start(mission, nil, func() { done++ }); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.RunFrames(125, frame)
	if r.Step() != 1 {
		t.Fatalf("expected waypoint step, got %d", r.Step())
	}
	// the next leg can no longer be built
	r.mission.Events[2].Coordinates = geo.Pt(math.NaN(), 46)
	m.RunFrames(60, frame)

	if done != 1 {
		t.Fatalf("expected completion callback after a failed leg, got %d", done)
	}
	if r.Running() {
		t.Fatal("replay should have stopped")
	}
	if !errors.Is(r.Err(), geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", r.Err())
	}
}
