package telemetry

import "time"

// DispatchStateRow captures dispatcher and alert counters at one instant.
type DispatchStateRow struct {
	ClusterID     string    `json:"cluster_id"`
	Drones        int       `json:"drones"`
	ActiveFlights int       `json:"active_flights"`
	Dispatched    int       `json:"dispatched"`
	AlertsRaised  int       `json:"alerts_raised"`
	AlertActive   bool      `json:"alert_active"`
	Timestamp     time.Time `json:"ts"`
}
