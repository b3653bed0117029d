package sim

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"droneops-dispatch/internal/alert"
	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/planner"
	"droneops-dispatch/internal/replay"
	"droneops-dispatch/internal/telemetry"
)

const frame = time.Second / 60

type firstPicker struct{}

func (firstPicker) Intn(int) int { return 0 }

func newTestSimulator(t *testing.T, cfg *config.Config) (*Simulator, *clock.Manual, *recordingWriter) {
	t.Helper()
	m := clock.NewManual(time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC))
	w := &recordingWriter{}
	n := 0
	s, err := NewSimulator(cfg, w,
		WithScheduler(m),
		WithAlertOptions(alert.WithPicker(firstPicker{}), alert.WithIDFunc(func() string {
			n++
			return fmt.Sprintf("ev-%d", n)
		})),
	)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	return s, m, w
}

func TestSimulatorSendWritesPositions(t *testing.T) {
	s, m, w := newTestSimulator(t, config.Default())

	ok, err := s.Send("D3")
	if err != nil || !ok {
		t.Fatalf("send D3: ok=%v err=%v", ok, err)
	}
	m.RunFrames(200, frame)

	if len(w.positions) == 0 {
		t.Fatal("no position rows written")
	}
	last := w.positions[len(w.positions)-1]
	if last.DroneID != "D3" || last.Progress != 1 {
		t.Fatalf("unexpected last row %+v", last)
	}
	if last.ClusterID != "dispatch-01" || last.StationID != "S2" {
		t.Fatalf("row not stamped: %+v", last)
	}
	if last.MercatorX == 0 || last.MercatorY == 0 {
		t.Fatalf("mercator projection missing: %+v", last)
	}
	if st := s.State(); st.Dispatched != 1 || st.ActiveFlights != 0 || st.Drones != 4 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestSimulatorUnknownDroneIsSoftFailure(t *testing.T) {
	s, m, w := newTestSimulator(t, config.Default())
	ok, err := s.Move("D42", geo.Pt(13.8, 46.3))
	if err != nil || ok {
		t.Fatalf("expected soft failure, ok=%v err=%v", ok, err)
	}
	m.RunFrames(10, frame)
	if len(w.positions) != 0 {
		t.Fatalf("unexpected rows %d", len(w.positions))
	}
}

func TestSimulatorAlertsAndState(t *testing.T) {
	cfg := config.Default()
	cfg.Alerts.IntervalMs = 10000
	cfg.Alerts.DisplayMs = 15000
	s, m, w := newTestSimulator(t, cfg)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second start: %v", err)
	}

	m.Advance(20 * time.Second)
	ev, ok := s.ActiveAlert()
	if !ok || ev.ID != "ev-2" {
		t.Fatalf("expected ev-2 on the board, got %+v ok=%v", ev, ok)
	}
	if len(w.states) != 4 {
		t.Fatalf("expected 4 state rows, got %d", len(w.states))
	}

	// ev-1 expires but ev-2 stays visible
	m.Advance(5 * time.Second)
	if ev, ok := s.ActiveAlert(); !ok || ev.ID != "ev-2" {
		t.Fatalf("stale expiry cleared the board: %+v", ev)
	}

	if !s.DismissAlert() {
		t.Fatal("dismiss returned false")
	}
	if s.DismissAlert() {
		t.Fatal("second dismiss should be a no-op")
	}

	var got []string
	for _, a := range w.alerts {
		got = append(got, a.AlertID+":"+a.State)
	}
	want := "ev-1:raised,ev-2:raised,ev-1:expired,ev-2:dismissed"
	if strings.Join(got, ",") != want {
		t.Fatalf("alert rows %v, want %s", got, want)
	}
	if w.alerts[0].Subject == "" || w.alerts[0].Message == "" {
		t.Fatalf("alert row missing subject: %+v", w.alerts[0])
	}

	st := s.State()
	if st.AlertsRaised != 2 || st.AlertActive {
		t.Fatalf("unexpected state %+v", st)
	}

	s.Stop()
	before := len(w.alerts)
	m.Advance(time.Minute)
	for _, a := range w.alerts[before:] {
		if a.State == telemetry.AlertRaised {
			t.Fatalf("alert raised after stop: %+v", a)
		}
	}
}

func TestSimulatorAlertsDisabled(t *testing.T) {
	cfg := config.Default()
	off := false
	cfg.Alerts.Enabled = &off
	s, m, w := newTestSimulator(t, cfg)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	m.Advance(2 * time.Minute)
	if len(w.alerts) != 0 {
		t.Fatalf("alerts raised while disabled: %d", len(w.alerts))
	}
}

func TestSimulatorMissionReplay(t *testing.T) {
	s, m, w := newTestSimulator(t, config.Default())
	if ids := s.Missions(); len(ids) == 0 || ids[0] != "triglav-d3" {
		t.Fatalf("unexpected missions %v", ids)
	}
	if err := s.StartMission("nope", nil); !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	done := false
	if err := s.StartMission("triglav-d3", func() { done = true }); err != nil {
		t.Fatalf("start mission: %v", err)
	}
	if err := s.StartMission("triglav-d3", nil); !errors.Is(err, replay.ErrBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	m.RunFrames(500, frame)

	if !done {
		t.Fatal("mission did not finish")
	}
	if len(w.missions) != 3 {
		t.Fatalf("expected 3 mission rows, got %d", len(w.missions))
	}
	for i, row := range w.missions {
		if row.Step != i || row.MissionID != "triglav-d3" || row.DroneID != "D3" {
			t.Fatalf("unexpected mission row %d: %+v", i, row)
		}
	}
	if w.missions[2].EventType != string(replay.EventDelivery) {
		t.Fatalf("last event %s", w.missions[2].EventType)
	}
	for _, p := range w.positions {
		if p.DroneID != "D3" {
			t.Fatalf("replay wrote row for %s", p.DroneID)
		}
	}

	s.ResetMission()
	if step, running := s.MissionStep(); step != 0 || running {
		t.Fatalf("reset left step=%d running=%v", step, running)
	}
}

func TestSimulatorReplayOwnsItsDrone(t *testing.T) {
	s, m, w := newTestSimulator(t, config.Default())

	if _, err := s.Send("D3"); err != nil {
		t.Fatalf("send: %v", err)
	}
	m.RunFrames(10, frame)
	if err := s.StartMission("triglav-d3", nil); err != nil {
		t.Fatalf("start mission: %v", err)
	}
	if got := s.State().ActiveFlights; got != 1 {
		t.Fatalf("expected the live flight to be replaced, %d active", got)
	}
	if _, err := s.Send("D3"); !errors.Is(err, replay.ErrBusy) {
		t.Fatalf("expected busy for send, got %v", err)
	}
	if _, err := s.Move("D3", geo.Pt(13.9, 46.4)); !errors.Is(err, replay.ErrBusy) {
		t.Fatalf("expected busy for move, got %v", err)
	}
	if ok, err := s.Send("D1"); err != nil || !ok {
		t.Fatalf("other drones stay dispatchable: ok=%v err=%v", ok, err)
	}

	before := len(w.positions)
	m.RunFrames(30, frame)
	var d3 []telemetry.PositionRow
	for _, row := range w.positions[before:] {
		if row.DroneID == "D3" {
			d3 = append(d3, row)
		}
	}
	if len(d3) != 30 {
		t.Fatalf("expected one D3 row per frame, got %d", len(d3))
	}
	for _, row := range d3 {
		if row.Lon > 13.845+1e-9 || row.Lat > 46.378+1e-9 {
			t.Fatalf("D3 row off the replayed leg: %.4f,%.4f", row.Lon, row.Lat)
		}
	}

	m.RunFrames(500, frame)
	if ok, err := s.Send("D3"); err != nil || !ok {
		t.Fatalf("D3 should be dispatchable after the replay: ok=%v err=%v", ok, err)
	}
}

func TestSimulatorResetMissionWritesStartPosition(t *testing.T) {
	s, m, w := newTestSimulator(t, config.Default())
	if err := s.StartMission("triglav-d3", nil); err != nil {
		t.Fatalf("start mission: %v", err)
	}
	m.RunFrames(60, frame)
	before := len(w.positions)

	s.ResetMission()
	if len(w.positions) != before+1 {
		t.Fatalf("expected one reset row, got %d", len(w.positions)-before)
	}
	last := w.positions[len(w.positions)-1]
	if last.DroneID != "D3" || last.Lon != 13.845 || last.Lat != 46.378 || last.Progress != 0 {
		t.Fatalf("unexpected reset row %+v", last)
	}

	n := len(w.positions)
	m.RunFrames(10, frame)
	if len(w.positions) != n {
		t.Fatalf("rows written after reset: %d", len(w.positions)-n)
	}
}

func TestSimulatorPlanRoute(t *testing.T) {
	s, _, _ := newTestSimulator(t, config.Default())
	if _, err := s.PlanRoute(geo.Pt(13.82, 46.35)); !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected not found without a planner, got %v", err)
	}

	grid, err := planner.LoadGrid("../../config/terrain.yaml")
	if err != nil {
		t.Fatalf("load grid: %v", err)
	}
	p, err := planner.New(grid, planner.DefaultParams())
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	s, err = NewSimulator(config.Default(), &recordingWriter{}, WithPlanner(p))
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	dest := geo.Pt(13.82, 46.35)
	r, err := s.PlanRoute(dest)
	if err != nil {
		t.Fatalf("plan route: %v", err)
	}
	if r.Station != "S1" {
		t.Errorf("expected route from S1, got %s", r.Station)
	}
	start, _ := grid.Cell(geo.Pt(13.845, 46.378))
	goal, _ := grid.Cell(dest)
	if r.Cells[0] != start || r.Cells[len(r.Cells)-1] != goal {
		t.Errorf("route %v does not join %v and %v", r.Cells, start, goal)
	}
	if r.EnergyWh <= 0 || r.Seconds <= 0 || r.DistanceM <= 0 {
		t.Errorf("empty summary %+v", r.Summary)
	}

	if _, err := s.PlanRoute(geo.Pt(14.5, 46.0)); !errors.Is(err, geo.ErrInvalidArgument) {
		t.Errorf("expected invalid argument off the grid, got %v", err)
	}
}

func TestSimulatorPathGeoJSON(t *testing.T) {
	s, _, _ := newTestSimulator(t, config.Default())
	if _, err := s.PathGeoJSON("D1"); !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected not found for idle drone, got %v", err)
	}
	if _, err := s.Send("D3"); err != nil {
		t.Fatalf("send: %v", err)
	}
	b, err := s.PathGeoJSON("D3")
	if err != nil {
		t.Fatalf("geojson: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"LineString"`) || !strings.Contains(out, `"curves":3`) {
		t.Fatalf("unexpected geojson %s", out)
	}
}

func TestSimulatorDoAndRun(t *testing.T) {
	s, _, _ := newTestSimulator(t, config.Default())
	var n int
	if err := s.Do(context.Background(), func() { n = len(s.Snapshot()) }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 drones, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestSimulatorETAsFollowAllowList(t *testing.T) {
	s, _, _ := newTestSimulator(t, config.Default())
	shown := map[string]bool{}
	for _, row := range s.ETAs() {
		shown[row.DroneID] = row.Shown
	}
	if !shown["D2"] || !shown["D3"] || shown["D1"] || shown["D4"] {
		t.Fatalf("unexpected ETA visibility %v", shown)
	}
	st, err := s.NearestStation(geo.Pt(13.856, 46.385))
	if err != nil || st.ID != "S2" {
		t.Fatalf("nearest station %v %v", st, err)
	}
}

func TestNewSimulatorRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Animation.DurationMs = -1
	if _, err := NewSimulator(cfg, nil); !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
