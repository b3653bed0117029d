package sim

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"droneops-dispatch/internal/telemetry"
)

// SubjectPrefix roots every subject the NATS writer publishes on.
const SubjectPrefix = "dronedash"

// publisher is the subset of *nats.Conn the writer needs.
type publisher interface {
	Publish(subj string, data []byte) error
}

// NATSWriter publishes rows as JSON on per-kind subjects:
// dronedash.<cluster>.position.<drone>, .alert.<state>, .mission.<id>, .state.
type NATSWriter struct {
	pub   publisher
	conn  *nats.Conn
	owned bool
}

// NewNATSWriter connects to url.
func NewNATSWriter(url string) (*NATSWriter, error) {
	nc, err := nats.Connect(url, nats.Name("dronedash"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSWriter{pub: nc, conn: nc, owned: true}, nil
}

// NewNATSWriterWithPublisher wraps an existing publisher.
func NewNATSWriterWithPublisher(p publisher) *NATSWriter {
	return &NATSWriter{pub: p}
}

// Subject builds a subject below SubjectPrefix.
func Subject(clusterID, kind, id string) string {
	if clusterID == "" {
		clusterID = "default"
	}
	if id == "" {
		return fmt.Sprintf("%s.%s.%s", SubjectPrefix, clusterID, kind)
	}
	return fmt.Sprintf("%s.%s.%s.%s", SubjectPrefix, clusterID, kind, id)
}

func (w *NATSWriter) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := w.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Write publishes a position row.
func (w *NATSWriter) Write(row telemetry.PositionRow) error {
	return w.publish(Subject(row.ClusterID, "position", row.DroneID), row)
}

// WriteAlert publishes an alert transition.
func (w *NATSWriter) WriteAlert(row telemetry.AlertRow) error {
	return w.publish(Subject(row.ClusterID, "alert", row.State), row)
}

// WriteMissionEvent publishes a mission milestone.
func (w *NATSWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	return w.publish(Subject(row.ClusterID, "mission", row.MissionID), row)
}

// WriteState publishes dispatcher counters.
func (w *NATSWriter) WriteState(row telemetry.DispatchStateRow) error {
	return w.publish(Subject(row.ClusterID, "state", ""), row)
}

// Close drains and closes an owned connection.
func (w *NATSWriter) Close() error {
	if w.owned && w.conn != nil {
		return w.conn.Drain()
	}
	return nil
}
