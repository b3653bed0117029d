package planner

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
)

// ErrNoRoute is returned when no passable route joins start and goal.
var ErrNoRoute = errors.New("no route")

const (
	DefaultVelocityMps  = 15.0
	DefaultClimbRateMps = 2.5
	DefaultMassKg       = 24.0
)

// Wind is a steady wind vector in m/s, positive toward north and east.
type Wind struct {
	North float64 `yaml:"north" json:"north"`
	East  float64 `yaml:"east" json:"east"`
}

// Params describes the airframe and the weather.
type Params struct {
	VelocityMps  float64
	ClimbRateMps float64
	MassKg       float64
	Wind         Wind
}

// DefaultParams returns a light delivery drone in still air.
func DefaultParams() Params {
	return Params{VelocityMps: DefaultVelocityMps, ClimbRateMps: DefaultClimbRateMps, MassKg: DefaultMassKg}
}

func (p Params) validate() error {
	for _, v := range []float64{p.VelocityMps, p.ClimbRateMps, p.MassKg} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: planner params %+v", geo.ErrInvalidArgument, p)
		}
	}
	if math.IsNaN(p.Wind.North) || math.IsNaN(p.Wind.East) || math.IsInf(p.Wind.North, 0) || math.IsInf(p.Wind.East, 0) {
		return fmt.Errorf("%w: wind %+v", geo.ErrInvalidArgument, p.Wind)
	}
	return nil
}

// Summary totals a planned route.
type Summary struct {
	EnergyWh   float64   `json:"energy_wh"`
	Seconds    float64   `json:"seconds"`
	DistanceM  float64   `json:"distance_m"`
	Elevations []float64 `json:"elevations"`
}

// Route is a planned flight from Cells[0] to the goal cell.
type Route struct {
	Station string   `json:"station,omitempty"`
	Cells   []Cell   `json:"cells"`
	Points  geo.Path `json:"points"`
	Summary
}

// Planner runs A* over a Grid. Edge cost is flight time in seconds.
type Planner struct {
	grid   *Grid
	params Params
}

// New returns a planner for grid with the given airframe parameters.
func New(grid *Grid, params Params) (*Planner, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", geo.ErrInvalidArgument)
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Planner{grid: grid, params: params}, nil
}

// Grid returns the planner's elevation grid.
func (p *Planner) Grid() *Grid { return p.grid }

// Params returns the planner's airframe parameters.
func (p *Planner) Params() Params { return p.params }

// PlanFrom plans from the station nearest to goal.
func (p *Planner) PlanFrom(stations []fleet.Station, goal geo.Point) (Route, error) {
	if len(stations) == 0 {
		return Route{}, fmt.Errorf("%w: no stations", geo.ErrInvalidArgument)
	}
	best, bestKm := -1, math.Inf(1)
	for i, s := range stations {
		km, err := geo.DistanceKm(s.Position, goal)
		if err != nil {
			return Route{}, err
		}
		if km < bestKm {
			best, bestKm = i, km
		}
	}
	r, err := p.Plan(stations[best].Position, goal)
	if err != nil {
		return Route{}, fmt.Errorf("from station %s: %w", stations[best].ID, err)
	}
	r.Station = stations[best].ID
	return r, nil
}

// Plan finds the fastest route between the cells holding from and to.
func (p *Planner) Plan(from, to geo.Point) (Route, error) {
	start, err := p.grid.Cell(from)
	if err != nil {
		return Route{}, fmt.Errorf("start: %w", err)
	}
	goal, err := p.grid.Cell(to)
	if err != nil {
		return Route{}, fmt.Errorf("goal: %w", err)
	}
	if start == goal {
		return Route{}, fmt.Errorf("%w: start and goal share cell %d,%d", geo.ErrInvalidArgument, start.Row, start.Col)
	}
	cells, err := p.search(start, goal)
	if err != nil {
		return Route{}, err
	}
	return p.route(cells), nil
}

var neighbours = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

func (p *Planner) search(start, goal Cell) ([]Cell, error) {
	g := p.grid
	n := g.rows * g.cols
	id := func(c Cell) int { return c.Row*g.cols + c.Col }

	cost := make([]float64, n)
	for i := range cost {
		cost[i] = math.Inf(1)
	}
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}
	closed := make([]bool, n)

	q := &queue{}
	cost[id(start)] = 0
	heap.Push(q, &item{cell: start, f: p.heuristic(start, goal)})
	for q.Len() > 0 {
		cur := heap.Pop(q).(*item)
		ci := id(cur.cell)
		if closed[ci] {
			continue
		}
		if cur.cell == goal {
			var cells []Cell
			for i := ci; i != -1; i = prev[i] {
				cells = append(cells, Cell{Row: i / g.cols, Col: i % g.cols})
			}
			for l, r := 0, len(cells)-1; l < r; l, r = l+1, r-1 {
				cells[l], cells[r] = cells[r], cells[l]
			}
			return cells, nil
		}
		closed[ci] = true
		for _, d := range neighbours {
			next := Cell{Row: cur.cell.Row + d[0], Col: cur.cell.Col + d[1]}
			if !g.Contains(next) || closed[id(next)] {
				continue
			}
			t, ok := p.stepSeconds(cur.cell, next)
			if !ok {
				continue
			}
			ni := id(next)
			if c := cost[ci] + t; c < cost[ni] {
				cost[ni] = c
				prev[ni] = ci
				heap.Push(q, &item{cell: next, f: c + p.heuristic(next, goal)})
			}
		}
	}
	return nil, fmt.Errorf("%w: %d,%d to %d,%d", ErrNoRoute, start.Row, start.Col, goal.Row, goal.Col)
}

// step returns the length of the move from a to b and its unit vector
// toward north and east.
func (p *Planner) step(a, b Cell) (dist, north, east float64) {
	dn := float64(a.Row-b.Row) * p.grid.rowM
	de := float64(b.Col-a.Col) * p.grid.colM
	dist = math.Hypot(dn, de)
	return dist, dn / dist, de / dist
}

// stepSeconds is the flight time from a to b. A move into a wind at least
// as fast as the airframe is impassable.
func (p *Planner) stepSeconds(a, b Cell) (float64, bool) {
	dist, north, east := p.step(a, b)
	ground := p.params.VelocityMps + p.params.Wind.North*north + p.params.Wind.East*east
	if ground <= 0 {
		return 0, false
	}
	t := dist / ground
	if climb := p.grid.Elevation(b) - p.grid.Elevation(a); climb > p.climbLimit(dist) {
		t += climb / p.params.ClimbRateMps
	}
	return t, true
}

// climbLimit is the height gained over dist without slowing down.
func (p *Planner) climbLimit(dist float64) float64 {
	return p.params.ClimbRateMps * dist / p.params.VelocityMps
}

func (p *Planner) heuristic(a, goal Cell) float64 {
	dn := float64(a.Row-goal.Row) * p.grid.rowM
	de := float64(goal.Col-a.Col) * p.grid.colM
	return math.Hypot(dn, de) / (p.params.VelocityMps + math.Hypot(p.params.Wind.North, p.params.Wind.East))
}

func (p *Planner) route(cells []Cell) Route {
	r := Route{Cells: cells, Points: make(geo.Path, len(cells))}
	r.Elevations = make([]float64, len(cells))
	for i, c := range cells {
		r.Points[i] = p.grid.Point(c)
		r.Elevations[i] = p.grid.Elevation(c)
		if i == 0 {
			continue
		}
		t, _ := p.stepSeconds(cells[i-1], c)
		dist, _, _ := p.step(cells[i-1], c)
		r.Seconds += t
		r.DistanceM += dist
		r.EnergyWh += p.stepEnergyWh(dist, r.Elevations[i]-r.Elevations[i-1])
	}
	return r
}

type item struct {
	cell  Cell
	f     float64
	index int
}

// queue is a min-heap on f.
type queue []*item

func (q queue) Len() int           { return len(q) }
func (q queue) Less(i, j int) bool { return q[i].f < q[j].f }
func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return it
}
