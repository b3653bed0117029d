// Telemetry structs with greptime tags
package telemetry

import (
	"os"
	"time"
)

// PositionRow is one animated drone position sample.
type PositionRow struct {
	ClusterID string    `json:"cluster_id"` // TAG
	DroneID   string    `json:"drone_id"`   // TAG
	StationID string    `json:"station_id"` // FIELD
	Lat       float64   `json:"lat"`        // FIELD
	Lon       float64   `json:"lon"`        // FIELD
	MercatorX float64   `json:"mercator_x"` // FIELD
	MercatorY float64   `json:"mercator_y"` // FIELD
	Progress  float64   `json:"progress"`   // FIELD
	Status    string    `json:"status"`     // FIELD
	Battery   int       `json:"battery"`    // FIELD
	Timestamp time.Time `json:"ts"`         // TIME INDEX
}

// Alert lifecycle states.
const (
	AlertRaised    = "raised"
	AlertExpired   = "expired"
	AlertDismissed = "dismissed"
)

// AlertRow records one emergency alert transition.
type AlertRow struct {
	ClusterID string    `json:"cluster_id"` // TAG
	AlertID   string    `json:"alert_id"`   // TAG
	State     string    `json:"state"`      // FIELD
	SubjectID string    `json:"subject_id"` // FIELD
	Subject   string    `json:"subject"`    // FIELD
	BloodType string    `json:"blood_type"` // FIELD
	Message   string    `json:"message"`    // FIELD
	Lat       float64   `json:"lat"`        // FIELD
	Lon       float64   `json:"lon"`        // FIELD
	ExpiresAt time.Time `json:"expires_at"` // FIELD
	Timestamp time.Time `json:"ts"`         // TIME INDEX
}

func tableName(env, def string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// PositionTableName defaults to "drone_positions"; POSITION_TABLE overrides it.
var PositionTableName = tableName("POSITION_TABLE", "drone_positions")

// AlertTableName defaults to "emergency_alerts"; ALERT_TABLE overrides it.
var AlertTableName = tableName("ALERT_TABLE", "emergency_alerts")

// MissionEventTableName defaults to "mission_events"; MISSION_TABLE overrides it.
var MissionEventTableName = tableName("MISSION_TABLE", "mission_events")

// StateTableName defaults to "dispatch_state"; STATE_TABLE overrides it.
var StateTableName = tableName("STATE_TABLE", "dispatch_state")

func (PositionRow) TableName() string { return PositionTableName }

func (AlertRow) TableName() string { return AlertTableName }

func (MissionEventRow) TableName() string { return MissionEventTableName }

func (DispatchStateRow) TableName() string { return StateTableName }
