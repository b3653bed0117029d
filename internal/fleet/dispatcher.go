package fleet

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/trajectory"
)

// Observer receives trajectory events for dispatched drones.
type Observer struct {
	OnMove   func(d Drone, p geo.Point, progress float64)
	OnArrive func(d Drone)
}

// Dispatcher owns the rosters and starts one trajectory session per movement
// request. Like the Player it is not safe for concurrent use.
type Dispatcher struct {
	player   *trajectory.Player
	drones   map[string]*entry
	order    []string
	stations map[string]Station
	stOrder  []string

	duration  time.Duration
	curves    map[string]int
	segments  int
	offsets   map[string]geo.Point
	speedKmh  float64
	observer  Observer
	log       *slog.Logger
	dispatchN int
}

type entry struct {
	drone  Drone
	entity *trajectory.Entity
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDuration sets how long every movement takes.
func WithDuration(d time.Duration) Option {
	return func(x *Dispatcher) { x.duration = d }
}

// WithCurves replaces the per-drone curve counts. Drones missing from curves
// use the default segment count.
func WithCurves(curves map[string]int) Option {
	return func(x *Dispatcher) {
		x.curves = make(map[string]int, len(curves))
		for id, n := range curves {
			x.curves[id] = n
		}
	}
}

// WithDefaultSegments sets the curve count for drones without an override.
func WithDefaultSegments(n int) Option {
	return func(x *Dispatcher) { x.segments = n }
}

// WithSendOffsets sets per-drone destinations for Send, relative to the
// drone's station.
func WithSendOffsets(offsets map[string]geo.Point) Option {
	return func(x *Dispatcher) {
		x.offsets = make(map[string]geo.Point, len(offsets))
		for id, o := range offsets {
			x.offsets[id] = o
		}
	}
}

// WithSpeed sets the assumed cruise speed for ETAs.
func WithSpeed(kmh float64) Option {
	return func(x *Dispatcher) { x.speedKmh = kmh }
}

// WithObserver registers trajectory callbacks.
func WithObserver(o Observer) Option {
	return func(x *Dispatcher) { x.observer = o }
}

// WithLogger sets the logger used for soft failures.
func WithLogger(l *slog.Logger) Option {
	return func(x *Dispatcher) { x.log = l }
}

// DefaultCurves gives D3 a three-curve path; everyone else uses the default.
func DefaultCurves() map[string]int {
	return map[string]int{"D3": 3}
}

// DefaultSendOffsets moves D2 west and D3 south of their stations.
func DefaultSendOffsets() map[string]geo.Point {
	return map[string]geo.Point{
		"D2": geo.Pt(-0.2, 0),
		"D3": geo.Pt(0, -0.2),
	}
}

// NewDispatcher builds a dispatcher over copies of the given rosters.
func NewDispatcher(drones []Drone, stations []Station, player *trajectory.Player, opts ...Option) (*Dispatcher, error) {
	if player == nil {
		return nil, fmt.Errorf("%w: nil player", geo.ErrInvalidArgument)
	}
	x := &Dispatcher{
		player:   player,
		drones:   make(map[string]*entry, len(drones)),
		stations: make(map[string]Station, len(stations)),
		duration: trajectory.DefaultDuration,
		curves:   DefaultCurves(),
		segments: geo.DefaultSegments,
		offsets:  DefaultSendOffsets(),
		speedKmh: geo.DefaultSpeedKmh,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(x)
	}
	if x.duration <= 0 {
		return nil, fmt.Errorf("%w: movement duration %s", geo.ErrInvalidArgument, x.duration)
	}
	if x.segments < 1 {
		return nil, fmt.Errorf("%w: default segments %d", geo.ErrInvalidArgument, x.segments)
	}
	if x.speedKmh <= 0 || math.IsNaN(x.speedKmh) || math.IsInf(x.speedKmh, 0) {
		return nil, fmt.Errorf("%w: speed %v", geo.ErrInvalidArgument, x.speedKmh)
	}
	for id, n := range x.curves {
		if n < 1 {
			return nil, fmt.Errorf("%w: drone %s curve count %d", geo.ErrInvalidArgument, id, n)
		}
	}

	for _, s := range stations {
		if s.ID == "" || !s.Position.Valid() {
			return nil, fmt.Errorf("%w: station %q", geo.ErrInvalidArgument, s.ID)
		}
		if _, dup := x.stations[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate station %q", geo.ErrInvalidArgument, s.ID)
		}
		x.stations[s.ID] = s
		x.stOrder = append(x.stOrder, s.ID)
	}
	for _, d := range drones {
		if d.ID == "" || !d.Position.Valid() {
			return nil, fmt.Errorf("%w: drone %q", geo.ErrInvalidArgument, d.ID)
		}
		if _, dup := x.drones[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate drone %q", geo.ErrInvalidArgument, d.ID)
		}
		d.Animating = false
		x.drones[d.ID] = &entry{
			drone:  d,
			entity: &trajectory.Entity{ID: d.ID, Position: d.Position},
		}
		x.order = append(x.order, d.ID)
	}
	return x, nil
}

// RequestMovement flies a drone from its station to dest. Unknown drones or
// stations are a soft failure: it returns false and changes nothing.
func (x *Dispatcher) RequestMovement(id string, dest geo.Point) (bool, error) {
	if !dest.Valid() {
		return false, fmt.Errorf("%w: destination %v", geo.ErrInvalidArgument, dest)
	}
	e, st, ok := x.lookup(id)
	if !ok {
		return false, nil
	}
	path, err := geo.GeneratePath(st.Position, dest, x.Curves(id))
	if err != nil {
		return false, err
	}
	_, err = x.player.Start(e.entity, path, x.duration, x.tick(e), x.arrive(e))
	if err != nil {
		return false, err
	}
	x.dispatchN++
	x.log.Debug("drone dispatched", "drone", id, "station", st.ID, "dest", dest.String(), "points", path.Len())
	return true, nil
}

// Send dispatches a drone to its configured destination: the station plus the
// drone's send offset, or the drone's own position when it has none.
func (x *Dispatcher) Send(id string) (bool, error) {
	e, st, ok := x.lookup(id)
	if !ok {
		return false, nil
	}
	dest := e.entity.Position
	if off, ok := x.offsets[id]; ok {
		dest = st.Position.Offset(off.Lon, off.Lat)
	}
	return x.RequestMovement(id, dest)
}

// Cancel stops a drone mid-flight, leaving it where it is.
func (x *Dispatcher) Cancel(id string) {
	x.player.Cancel(id)
}

// Curves returns the number of curves used for a drone's path.
func (x *Dispatcher) Curves(id string) int {
	if n, ok := x.curves[id]; ok {
		return n
	}
	return x.segments
}

// Dispatched counts successful movement requests.
func (x *Dispatcher) Dispatched() int { return x.dispatchN }

func (x *Dispatcher) lookup(id string) (*entry, Station, bool) {
	e, ok := x.drones[id]
	if !ok {
		x.log.Debug("movement for unknown drone ignored", "drone", id)
		return nil, Station{}, false
	}
	st, ok := x.stations[e.drone.StationID]
	if !ok {
		x.log.Debug("movement for drone without station ignored", "drone", id, "station", e.drone.StationID)
		return nil, Station{}, false
	}
	return e, st, true
}

func (x *Dispatcher) tick(e *entry) trajectory.TickFunc {
	return func(_ *trajectory.Entity, p geo.Point, progress float64) {
		if x.observer.OnMove != nil {
			x.observer.OnMove(e.view(), p, progress)
		}
	}
}

func (x *Dispatcher) arrive(e *entry) trajectory.CompleteFunc {
	return func(*trajectory.Entity) {
		x.log.Debug("drone arrived", "drone", e.drone.ID, "at", e.entity.Position.String())
		if x.observer.OnArrive != nil {
			x.observer.OnArrive(e.view())
		}
	}
}

func (e *entry) view() Drone {
	d := e.drone
	d.Position = e.entity.Position
	d.Animating = e.entity.Animating
	return d
}

// Drone returns the live state of one drone.
func (x *Dispatcher) Drone(id string) (Drone, error) {
	e, ok := x.drones[id]
	if !ok {
		return Drone{}, fmt.Errorf("drone %q: %w", id, ErrNotFound)
	}
	return e.view(), nil
}

// Station returns one station.
func (x *Dispatcher) Station(id string) (Station, error) {
	s, ok := x.stations[id]
	if !ok {
		return Station{}, fmt.Errorf("station %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// Snapshot returns every drone in roster order.
func (x *Dispatcher) Snapshot() []Drone {
	out := make([]Drone, 0, len(x.order))
	for _, id := range x.order {
		out = append(out, x.drones[id].view())
	}
	return out
}

// Stations returns every station in roster order.
func (x *Dispatcher) Stations() []Station {
	out := make([]Station, 0, len(x.stOrder))
	for _, id := range x.stOrder {
		out = append(out, x.stations[id])
	}
	return out
}

// ActivePath returns the path a drone is currently flying.
func (x *Dispatcher) ActivePath(id string) (geo.Path, bool) {
	e, ok := x.drones[id]
	if !ok || !e.entity.Animating {
		return nil, false
	}
	return e.entity.Path, true
}

// ETAs computes the drone→station ETA for every drone accepted by pred. A nil
// predicate accepts every drone.
func (x *Dispatcher) ETAs(pred ETAPredicate) []ETA {
	out := make([]ETA, 0, len(x.order))
	for _, id := range x.order {
		d := x.drones[id].view()
		row := ETA{DroneID: d.ID, StationID: d.StationID}
		st, ok := x.stations[d.StationID]
		if ok && (pred == nil || pred(d)) {
			km, err := geo.DistanceKm(d.Position, st.Position)
			if err == nil {
				mins, _ := geo.ETAMinutes(d.Position, st.Position, x.speedKmh)
				row.DistanceKm = km
				row.Minutes = mins
				row.Shown = true
			}
		}
		out = append(out, row)
	}
	return out
}

// NearestStation returns the station with the shortest great-circle distance
// to p.
func (x *Dispatcher) NearestStation(p geo.Point) (Station, error) {
	if !p.Valid() {
		return Station{}, fmt.Errorf("%w: point %v", geo.ErrInvalidArgument, p)
	}
	type cand struct {
		st Station
		km float64
	}
	var cands []cand
	for _, id := range x.stOrder {
		st := x.stations[id]
		km, err := geo.DistanceKm(p, st.Position)
		if err != nil {
			continue
		}
		cands = append(cands, cand{st, km})
	}
	if len(cands) == 0 {
		return Station{}, fmt.Errorf("nearest station: %w", ErrNotFound)
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].km < cands[j].km })
	return cands[0].st, nil
}
