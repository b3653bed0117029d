package telemetry

import "time"

// MissionEventRow is emitted when a replayed mission reaches an event.
type MissionEventRow struct {
	ClusterID   string    `json:"cluster_id"`
	MissionID   string    `json:"mission_id"`
	DroneID     string    `json:"drone_id"`
	Step        int       `json:"step"`
	EventType   string    `json:"event_type"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Description string    `json:"description,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
	Timestamp   time.Time `json:"ts"`
}
