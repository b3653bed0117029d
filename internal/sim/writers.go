package sim

import "droneops-dispatch/internal/telemetry"

// PositionWriter receives every animated position. It is the one interface
// all writers implement; the others are discovered by type assertion.
type PositionWriter interface {
	Write(telemetry.PositionRow) error
}

// AlertWriter handles emergency alert transitions.
type AlertWriter interface {
	WriteAlert(telemetry.AlertRow) error
}

// MissionEventWriter handles replayed mission milestones.
type MissionEventWriter interface {
	WriteMissionEvent(telemetry.MissionEventRow) error
}

// StateWriter handles periodic dispatcher state rows.
type StateWriter interface {
	WriteState(telemetry.DispatchStateRow) error
}

// AdminStatusWriter is told where the admin API listens, or that it stopped.
type AdminStatusWriter interface {
	SetAdminStatus(addr string, listening bool)
}

type batchWriter interface {
	WriteBatch([]telemetry.PositionRow) error
}

type batchAlertWriter interface {
	WriteAlerts([]telemetry.AlertRow) error
}

type batchMissionEventWriter interface {
	WriteMissionEvents([]telemetry.MissionEventRow) error
}

type batchStateWriter interface {
	WriteStates([]telemetry.DispatchStateRow) error
}
