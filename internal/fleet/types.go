// Package fleet holds the drone and station rosters and turns movement
// requests into trajectory sessions.
package fleet

import (
	"errors"

	"droneops-dispatch/internal/geo"
)

// ErrNotFound is returned by lookups for unknown drones or stations.
var ErrNotFound = errors.New("not found")

// Status is the operational state reported for a drone.
type Status string

const (
	StatusEnRoute  Status = "en-route"
	StatusIdle     Status = "idle"
	StatusCharging Status = "charging"
)

// Station is a base a drone departs from.
type Station struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Position geo.Point `json:"position" yaml:"position"`
}

// Drone is one roster entry. Position and Animating reflect the live
// trajectory state when returned from a Dispatcher.
type Drone struct {
	ID        string    `json:"id" yaml:"id"`
	Status    Status    `json:"status" yaml:"status"`
	Battery   int       `json:"battery" yaml:"battery"`
	StationID string    `json:"station" yaml:"station"`
	Position  geo.Point `json:"position" yaml:"position"`
	Animating bool      `json:"animating" yaml:"-"`
}

// ETA is one row of the fleet status table.
type ETA struct {
	DroneID    string  `json:"drone_id"`
	StationID  string  `json:"station_id"`
	DistanceKm float64 `json:"distance_km"`
	Minutes    int     `json:"minutes"`
	// Shown is false when the display predicate rejected the drone; the
	// distance and minutes are then zero.
	Shown bool `json:"shown"`
}

// ETAPredicate decides whether a drone's ETA is displayed.
type ETAPredicate func(d Drone) bool

// EnRouteAllowList shows ETAs only for en-route drones whose id is listed.
func EnRouteAllowList(ids ...string) ETAPredicate {
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	return func(d Drone) bool {
		return d.Status == StatusEnRoute && allowed[d.ID]
	}
}

// AllEnRoute shows ETAs for every en-route drone.
func AllEnRoute(d Drone) bool { return d.Status == StatusEnRoute }

// Triglav is the map center of the default deployment.
var Triglav = geo.Pt(13.849, 46.38)

// DefaultStations returns the built-in station roster.
func DefaultStations() []Station {
	return []Station{
		{ID: "S1", Name: "Triglav Base", Position: geo.Pt(13.845, 46.378)},
		{ID: "S2", Name: "Kredarica", Position: geo.Pt(13.855, 46.384)},
	}
}

// DefaultDrones returns the built-in drone roster, parked at their stations.
func DefaultDrones() []Drone {
	return []Drone{
		{ID: "D1", Status: StatusIdle, Battery: 100, StationID: "S1", Position: geo.Pt(13.845, 46.378)},
		{ID: "D2", Status: StatusEnRoute, Battery: 76, StationID: "S1", Position: geo.Pt(13.838, 46.372)},
		{ID: "D3", Status: StatusEnRoute, Battery: 54, StationID: "S2", Position: geo.Pt(13.861, 46.389)},
		{ID: "D4", Status: StatusCharging, Battery: 18, StationID: "S2", Position: geo.Pt(13.855, 46.384)},
	}
}
