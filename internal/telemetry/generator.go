package telemetry

import (
	"time"

	"droneops-dispatch/internal/alert"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/replay"
)

// Generator stamps simulation observations into rows for a given cluster.
type Generator struct {
	ClusterID string
	now       func() time.Time
}

// NewGenerator creates a new row generator for a given cluster. now may be
// nil, in which case the wall clock is used.
func NewGenerator(clusterID string, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{ClusterID: clusterID, now: now}
}

// Position builds the row for one animated position of d.
func (g *Generator) Position(d fleet.Drone, p geo.Point, progress float64) PositionRow {
	x, y := geo.WebMercator(p)
	return PositionRow{
		ClusterID: g.ClusterID,
		DroneID:   d.ID,
		StationID: d.StationID,
		Lat:       p.Lat,
		Lon:       p.Lon,
		MercatorX: x,
		MercatorY: y,
		Progress:  progress,
		Status:    string(d.Status),
		Battery:   d.Battery,
		Timestamp: g.now().UTC(),
	}
}

// Alert builds the row for an alert transition.
func (g *Generator) Alert(ev alert.Event, state string) AlertRow {
	return AlertRow{
		ClusterID: g.ClusterID,
		AlertID:   ev.ID,
		State:     state,
		SubjectID: ev.Subject.ID,
		Subject:   ev.Subject.Name,
		BloodType: ev.Subject.BloodType,
		Message:   ev.Message,
		Lat:       ev.Subject.Location.Lat,
		Lon:       ev.Subject.Location.Lon,
		ExpiresAt: ev.ExpiresAt.UTC(),
		Timestamp: g.now().UTC(),
	}
}

// MissionEvent builds the row for a replayed mission step.
func (g *Generator) MissionEvent(m replay.Mission, step int, ev replay.Event) MissionEventRow {
	droneID := ev.DroneID
	if droneID == "" {
		droneID = m.DroneID
	}
	return MissionEventRow{
		ClusterID:   g.ClusterID,
		MissionID:   m.ID,
		DroneID:     droneID,
		Step:        step,
		EventType:   string(ev.Type),
		Lat:         ev.Coordinates.Lat,
		Lon:         ev.Coordinates.Lon,
		Description: ev.Description,
		RecordedAt:  ev.Timestamp.UTC(),
		Timestamp:   g.now().UTC(),
	}
}

// State builds a dispatcher state row.
func (g *Generator) State(drones, active, dispatched, raised int, alertActive bool) DispatchStateRow {
	return DispatchStateRow{
		ClusterID:     g.ClusterID,
		Drones:        drones,
		ActiveFlights: active,
		Dispatched:    dispatched,
		AlertsRaised:  raised,
		AlertActive:   alertActive,
		Timestamp:     g.now().UTC(),
	}
}
