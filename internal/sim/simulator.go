// Simulator orchestrating dispatch, alerts and mission replay
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"droneops-dispatch/internal/alert"
	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/planner"
	"droneops-dispatch/internal/replay"
	"droneops-dispatch/internal/telemetry"
	"droneops-dispatch/internal/trajectory"
)

// Scheduler is the loop the simulator runs on.
type Scheduler interface {
	clock.Scheduler
	clock.Executor
}

// Simulator owns every piece of live state. All methods except Do and Run
// must be called on the scheduler's goroutine; other goroutines go through Do.
type Simulator struct {
	cfg      *config.Config
	sched    Scheduler
	loop     *clock.Loop
	player   *trajectory.Player
	fleet    *fleet.Dispatcher
	alerts   *alert.Simulator
	board    alert.Board
	alertRun *alert.Handle
	replayer *replay.Replayer
	missions map[string]replay.Mission
	mission  *replay.Mission
	gen      *telemetry.Generator
	writer   PositionWriter
	planner  *planner.Planner
	log      *slog.Logger

	alertOpts  []alert.Option
	stateTimer clock.Handle
	started    bool
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithScheduler replaces the real-time loop, typically with clock.Manual.
func WithScheduler(s Scheduler) Option {
	return func(sim *Simulator) { sim.sched = s }
}

// WithLogger sets the simulator logger.
func WithLogger(l *slog.Logger) Option {
	return func(sim *Simulator) { sim.log = l }
}

// WithAlertOptions passes options to the alert generator.
func WithAlertOptions(opts ...alert.Option) Option {
	return func(sim *Simulator) { sim.alertOpts = append(sim.alertOpts, opts...) }
}

// WithMissions adds replayable missions next to the built-in ones.
func WithMissions(ms ...replay.Mission) Option {
	return func(sim *Simulator) {
		for _, m := range ms {
			sim.missions[m.ID] = m
		}
	}
}

// WithPlanner enables terrain-aware route planning.
func WithPlanner(p *planner.Planner) Option {
	return func(sim *Simulator) { sim.planner = p }
}

// NewSimulator wires the dispatcher, alert generator and replayer to writer.
func NewSimulator(cfg *config.Config, writer PositionWriter, opts ...Option) (*Simulator, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:      cfg,
		missions: replay.BuiltIn(),
		writer:   writer,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.writer == nil {
		s.writer = NewMultiWriter()
	}
	if s.sched == nil {
		s.loop = clock.NewLoop(cfg.FrameInterval())
		s.sched = s.loop
	}
	s.log = s.log.With("component", "simulator", "cluster", cfg.ClusterID)
	s.gen = telemetry.NewGenerator(cfg.ClusterID, s.sched.Now)
	s.player = trajectory.NewPlayer(s.sched)

	var err error
	s.fleet, err = fleet.NewDispatcher(cfg.Drones, cfg.Stations, s.player,
		fleet.WithDuration(cfg.AnimationDuration()),
		fleet.WithCurves(cfg.Animation.Curves),
		fleet.WithDefaultSegments(cfg.Animation.DefaultSegments),
		fleet.WithSendOffsets(cfg.SendOffsets),
		fleet.WithSpeed(cfg.ETA.SpeedKmh),
		fleet.WithLogger(s.log),
		fleet.WithObserver(fleet.Observer{
			OnMove: func(d fleet.Drone, p geo.Point, progress float64) {
				s.writePosition(s.gen.Position(d, p, progress))
			},
			OnArrive: func(d fleet.Drone) {
				s.log.Info("drone arrived", "drone", d.ID, "at", d.Position.String())
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}
	s.alerts = alert.NewSimulator(s.sched, s.alertOpts...)
	s.replayer = replay.NewReplayer(s.sched, s.player,
		replay.WithLegDuration(cfg.ReplayLeg()),
		replay.WithPause(cfg.ReplayPause()),
		replay.WithMoveFunc(s.replayMove),
	)
	return s, nil
}

// Config returns the configuration the simulator was built from.
func (s *Simulator) Config() *config.Config { return s.cfg }

// Do runs fn on the simulator's goroutine and waits for it.
func (s *Simulator) Do(ctx context.Context, fn func()) error {
	return s.sched.Do(ctx, fn)
}

// Start begins the alert generator and the periodic state rows. Calling it
// twice is a no-op.
func (s *Simulator) Start() error {
	if s.started {
		return nil
	}
	if s.cfg.AlertsEnabled() {
		h, err := s.alerts.Start(s.cfg.Alerts.Subjects, s.cfg.AlertInterval(), s.cfg.AlertDisplay(), s.onAlert, s.onAlertExpired)
		if err != nil {
			return fmt.Errorf("start alerts: %w", err)
		}
		s.alertRun = h
	}
	s.scheduleState()
	s.started = true
	return nil
}

// Stop cancels every pending session and timer.
func (s *Simulator) Stop() {
	s.alertRun.Cancel()
	s.alertRun = nil
	if s.stateTimer != nil {
		s.stateTimer.Cancel()
		s.stateTimer = nil
	}
	if s.replayer.Running() {
		s.replayer.Reset()
	}
	s.player.CancelAll()
	s.started = false
}

// Run starts the simulation and drives the real-time loop until ctx is done.
// With an injected scheduler it only starts and waits.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	s.log.Info("simulation started", "drones", len(s.cfg.Drones), "stations", len(s.cfg.Stations), "alerts", s.cfg.AlertsEnabled())
	if s.loop != nil {
		s.loop.Run(ctx)
	} else {
		<-ctx.Done()
	}
	s.Stop()
	s.log.Info("simulation stopped", "dispatched", s.fleet.Dispatched())
	return nil
}

func (s *Simulator) scheduleState() {
	s.stateTimer = s.sched.AfterFunc(s.cfg.StateInterval(), func() {
		s.emitState()
		s.scheduleState()
	})
}

func (s *Simulator) emitState() {
	sw, ok := s.writer.(StateWriter)
	if !ok {
		return
	}
	if err := sw.WriteState(s.State()); err != nil {
		s.log.Warn("state write failed", "err", err)
	}
}

// State summarises the simulator's counters.
func (s *Simulator) State() telemetry.DispatchStateRow {
	_, active := s.board.Active()
	return s.gen.State(len(s.cfg.Drones), s.player.ActiveCount(), s.fleet.Dispatched(), s.board.Raised(), active)
}

func (s *Simulator) writePosition(row telemetry.PositionRow) {
	if err := s.writer.Write(row); err != nil {
		s.log.Warn("position write failed", "drone", row.DroneID, "err", err)
	}
}

func (s *Simulator) writeAlert(ev alert.Event, state string) {
	aw, ok := s.writer.(AlertWriter)
	if !ok {
		return
	}
	if err := aw.WriteAlert(s.gen.Alert(ev, state)); err != nil {
		s.log.Warn("alert write failed", "alert", ev.ID, "err", err)
	}
}

func (s *Simulator) onAlert(ev alert.Event) {
	s.board.Show(ev)
	s.log.Info("emergency alert", "alert", ev.ID, "subject", ev.Subject.Name)
	s.writeAlert(ev, telemetry.AlertRaised)
}

func (s *Simulator) onAlertExpired(ev alert.Event) {
	s.board.Expire(ev)
	s.writeAlert(ev, telemetry.AlertExpired)
}

// Send dispatches a drone to its configured destination. A drone flying a
// mission replay is refused with replay.ErrBusy.
func (s *Simulator) Send(id string) (bool, error) {
	if err := s.checkReplay(id); err != nil {
		return false, err
	}
	return s.fleet.Send(id)
}

// Move dispatches a drone from its station to dest.
func (s *Simulator) Move(id string, dest geo.Point) (bool, error) {
	if err := s.checkReplay(id); err != nil {
		return false, err
	}
	return s.fleet.RequestMovement(id, dest)
}

// checkReplay refuses live movement of the drone a replay is flying.
func (s *Simulator) checkReplay(id string) error {
	if s.replayer.Running() && s.replayer.DroneID() == id {
		return fmt.Errorf("drone %s is replaying mission %s: %w", id, s.mission.ID, replay.ErrBusy)
	}
	return nil
}

// Cancel stops a drone where it is.
func (s *Simulator) Cancel(id string) { s.fleet.Cancel(id) }

// Snapshot returns every drone's live state.
func (s *Simulator) Snapshot() []fleet.Drone { return s.fleet.Snapshot() }

// Stations returns the station roster.
func (s *Simulator) Stations() []fleet.Station { return s.fleet.Stations() }

// ETAs returns the ETA table using the configured allow list.
func (s *Simulator) ETAs() []fleet.ETA {
	return s.fleet.ETAs(fleet.EnRouteAllowList(s.cfg.ETA.AllowList...))
}

// NearestStation returns the station closest to p.
func (s *Simulator) NearestStation(p geo.Point) (fleet.Station, error) {
	return s.fleet.NearestStation(p)
}

// ActiveAlert returns the alert currently shown.
func (s *Simulator) ActiveAlert() (alert.Event, bool) { return s.board.Active() }

// DismissAlert clears the shown alert.
func (s *Simulator) DismissAlert() bool {
	ev, ok := s.board.Active()
	if !ok {
		return false
	}
	s.board.Dismiss()
	s.writeAlert(ev, telemetry.AlertDismissed)
	return true
}

// PathGeoJSON renders the path a drone is flying as a GeoJSON feature.
func (s *Simulator) PathGeoJSON(id string) ([]byte, error) {
	path, ok := s.fleet.ActivePath(id)
	if !ok {
		return nil, fmt.Errorf("active path for %q: %w", id, fleet.ErrNotFound)
	}
	return path.GeoJSON(id, map[string]interface{}{
		"drone":  id,
		"curves": s.fleet.Curves(id),
		"points": path.Len(),
	})
}

// PlanRoute plans a terrain-aware route to dest from the nearest station.
// Unlike the other methods it is safe to call from any goroutine.
func (s *Simulator) PlanRoute(dest geo.Point) (planner.Route, error) {
	if s.planner == nil {
		return planner.Route{}, fmt.Errorf("route planner: %w", fleet.ErrNotFound)
	}
	r, err := s.planner.PlanFrom(s.cfg.Stations, dest)
	if err != nil {
		return planner.Route{}, err
	}
	s.log.Debug("route planned", "station", r.Station, "to", dest.String(), "cells", len(r.Cells), "energy_wh", r.EnergyWh)
	return r, nil
}

// Missions lists the replayable mission ids.
func (s *Simulator) Missions() []string {
	ids := make([]string, 0, len(s.missions))
	for id := range s.missions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StartMission replays the named mission. A live flight of the mission's
// drone is cancelled first so only the replay moves it. onDone may be nil.
func (s *Simulator) StartMission(id string, onDone func()) error {
	m, ok := s.missions[id]
	if !ok {
		return fmt.Errorf("mission %q: %w", id, fleet.ErrNotFound)
	}
	if s.replayer.Running() {
		return replay.ErrBusy
	}
	if err := m.Validate(); err != nil {
		return err
	}
	s.fleet.Cancel(m.DroneID)
	done := func() {
		if err := s.replayer.Err(); err != nil {
			s.log.Error("mission replay aborted", "mission", m.ID, "err", err)
		}
		if onDone != nil {
			onDone()
		}
	}
	if err := s.replayer.Start(m, s.missionStep(m), done); err != nil {
		return err
	}
	s.mission = &m
	s.log.Info("mission replay started", "mission", m.ID, "drone", m.DroneID, "events", len(m.Events))
	return nil
}

// ResetMission stops the replay and returns its drone to the first event.
func (s *Simulator) ResetMission() {
	s.replayer.Reset()
	if s.mission != nil {
		s.log.Info("mission replay reset", "mission", s.mission.ID)
	}
}

// MissionStep reports the replay progress.
func (s *Simulator) MissionStep() (step int, running bool) {
	return s.replayer.Step(), s.replayer.Running()
}

func (s *Simulator) missionStep(m replay.Mission) replay.StepFunc {
	return func(i int, ev replay.Event) {
		s.log.Debug("mission step", "mission", m.ID, "step", i, "type", ev.Type)
		mw, ok := s.writer.(MissionEventWriter)
		if !ok {
			return
		}
		if err := mw.WriteMissionEvent(s.gen.MissionEvent(m, i, ev)); err != nil {
			s.log.Warn("mission write failed", "mission", m.ID, "err", err)
		}
	}
}

func (s *Simulator) replayMove(droneID string, p geo.Point, progress float64) {
	d, err := s.fleet.Drone(droneID)
	if err != nil {
		d = fleet.Drone{ID: droneID}
	}
	s.writePosition(s.gen.Position(d, p, progress))
}
