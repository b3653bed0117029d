// Package replay animates recorded delivery missions event by event.
package replay

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
)

// EventType classifies a mission event.
type EventType string

const (
	EventStart    EventType = "start"
	EventWaypoint EventType = "waypoint"
	EventDelivery EventType = "delivery"
)

// Mission is an ordered list of events flown by one drone.
type Mission struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name,omitempty" json:"name,omitempty"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	DroneID     string          `yaml:"drone_id" json:"drone_id"`
	Events      []Event         `yaml:"events" json:"events"`
	Stations    []fleet.Station `yaml:"stations,omitempty" json:"stations,omitempty"`
	// Route is the planned track drawn under the replay.
	Route []geo.Point `yaml:"route,omitempty" json:"route,omitempty"`
}

// Event is one recorded mission milestone.
type Event struct {
	ID          int       `yaml:"id" json:"id"`
	Timestamp   time.Time `yaml:"timestamp" json:"timestamp"`
	Type        EventType `yaml:"type" json:"type"`
	DroneID     string    `yaml:"drone_id" json:"drone_id"`
	Coordinates geo.Point `yaml:"coordinates" json:"coordinates"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
}

// Validate checks that the mission can be replayed.
func (m Mission) Validate() error {
	if len(m.Events) < 2 {
		return fmt.Errorf("%w: mission %q needs at least 2 events, has %d", geo.ErrInvalidArgument, m.ID, len(m.Events))
	}
	for i, ev := range m.Events {
		if !ev.Coordinates.Valid() {
			return fmt.Errorf("%w: mission %q event %d has invalid coordinates", geo.ErrInvalidArgument, m.ID, i)
		}
	}
	return nil
}

// RoutePath returns the planned route, falling back to the event coordinates.
func (m Mission) RoutePath() geo.Path {
	if len(m.Route) >= 2 {
		return geo.Path(m.Route)
	}
	p := make(geo.Path, 0, len(m.Events))
	for _, ev := range m.Events {
		p = append(p, ev.Coordinates)
	}
	return p
}

// Load reads a YAML mission definition from disk.
func Load(path string) (*Mission, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mission: %w", err)
	}
	var m Mission
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse mission: %w", err)
	}
	for i := range m.Events {
		if m.Events[i].DroneID == "" {
			m.Events[i].DroneID = m.DroneID
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
