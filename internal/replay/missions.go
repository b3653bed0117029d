package replay

import (
	"time"

	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
)

// BuiltIn returns the predefined missions keyed by id.
func BuiltIn() map[string]Mission {
	t0 := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	return map[string]Mission{
		"triglav-d3": {
			ID:          "triglav-d3",
			Name:        "Triglav delivery",
			Description: "D3 flies a medical kit from Station S1 past one waypoint to the drop point.",
			DroneID:     "D3",
			Events: []Event{
				{ID: 1, Timestamp: t0, Type: EventStart, DroneID: "D3", Coordinates: geo.Pt(13.845, 46.378), Description: "Drone D3 started mission from Station S1"},
				{ID: 2, Timestamp: t0.Add(5 * time.Minute), Type: EventWaypoint, DroneID: "D3", Coordinates: geo.Pt(13.83, 46.37), Description: "Drone D3 reached first waypoint"},
				{ID: 3, Timestamp: t0.Add(10 * time.Minute), Type: EventDelivery, DroneID: "D3", Coordinates: geo.Pt(13.815, 46.365), Description: "Drone D3 reached destination point"},
			},
			Stations: []fleet.Station{
				{ID: "S1", Name: "Station S1", Position: geo.Pt(13.845, 46.378)},
				{ID: "S2", Name: "Station S2", Position: geo.Pt(13.855, 46.384)},
			},
			Route: []geo.Point{
				geo.Pt(13.845, 46.378),
				geo.Pt(13.842, 46.376),
				geo.Pt(13.838, 46.374),
				geo.Pt(13.834, 46.372),
				geo.Pt(13.83, 46.37),
				geo.Pt(13.825, 46.368),
				geo.Pt(13.82, 46.366),
				geo.Pt(13.815, 46.365),
			},
		},
	}
}
