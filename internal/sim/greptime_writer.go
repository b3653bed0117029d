package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"droneops-dispatch/internal/telemetry"
)

// DefaultGreptimePort is the gRPC port GreptimeDB listens on.
const DefaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes rows to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client        greptimeClient
	positionTable string
	alertTable    string
	missionTable  string
	stateTable    string
	timeout       time.Duration
	log           *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:        client,
		positionTable: telemetry.PositionTableName,
		alertTable:    telemetry.AlertTableName,
		missionTable:  telemetry.MissionEventTableName,
		stateTable:    telemetry.StateTableName,
		timeout:       5 * time.Second,
		log:           log.With("component", "greptime"),
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, DefaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table, n int) error {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", name, err)
	}
	if w.log != nil {
		w.log.Debug("wrote rows", "table", name, "rows", n)
	}
	return nil
}

type column struct {
	name string
	kind types.ColumnType
	tag  bool
}

func newTable(name string, cols []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.kind)
		} else {
			err = tbl.AddFieldColumn(c.name, c.kind)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	return tbl, nil
}

var positionColumns = []column{
	{"cluster_id", types.STRING, true},
	{"drone_id", types.STRING, true},
	{"station_id", types.STRING, false},
	{"lat", types.FLOAT64, false},
	{"lon", types.FLOAT64, false},
	{"mercator_x", types.FLOAT64, false},
	{"mercator_y", types.FLOAT64, false},
	{"progress", types.FLOAT64, false},
	{"status", types.STRING, false},
	{"battery", types.INT64, false},
}

// Write inserts a single position row.
func (w *GreptimeDBWriter) Write(row telemetry.PositionRow) error {
	return w.WriteBatch([]telemetry.PositionRow{row})
}

// WriteBatch inserts multiple position rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.PositionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.positionTable, positionColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.DroneID, r.StationID, r.Lat, r.Lon, r.MercatorX, r.MercatorY,
			r.Progress, r.Status, int64(r.Battery), r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.positionTable, tbl, len(rows))
}

var alertColumns = []column{
	{"cluster_id", types.STRING, true},
	{"alert_id", types.STRING, true},
	{"state", types.STRING, false},
	{"subject_id", types.STRING, false},
	{"subject", types.STRING, false},
	{"blood_type", types.STRING, false},
	{"message", types.STRING, false},
	{"lat", types.FLOAT64, false},
	{"lon", types.FLOAT64, false},
	{"expires_at", types.TIMESTAMP_MILLISECOND, false},
}

// WriteAlert inserts a single alert row.
func (w *GreptimeDBWriter) WriteAlert(row telemetry.AlertRow) error {
	return w.WriteAlerts([]telemetry.AlertRow{row})
}

// WriteAlerts inserts multiple alert rows.
func (w *GreptimeDBWriter) WriteAlerts(rows []telemetry.AlertRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.alertTable, alertColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.AlertID, r.State, r.SubjectID, r.Subject, r.BloodType, r.Message,
			r.Lat, r.Lon, r.ExpiresAt, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.alertTable, tbl, len(rows))
}

var missionColumns = []column{
	{"cluster_id", types.STRING, true},
	{"mission_id", types.STRING, true},
	{"drone_id", types.STRING, false},
	{"step", types.INT64, false},
	{"event_type", types.STRING, false},
	{"lat", types.FLOAT64, false},
	{"lon", types.FLOAT64, false},
	{"description", types.STRING, false},
	{"recorded_at", types.TIMESTAMP_MILLISECOND, false},
}

// WriteMissionEvent inserts a single mission row.
func (w *GreptimeDBWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	return w.WriteMissionEvents([]telemetry.MissionEventRow{row})
}

// WriteMissionEvents inserts multiple mission rows.
func (w *GreptimeDBWriter) WriteMissionEvents(rows []telemetry.MissionEventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.missionTable, missionColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, r.MissionID, r.DroneID, int64(r.Step), r.EventType, r.Lat, r.Lon,
			r.Description, r.RecordedAt, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.missionTable, tbl, len(rows))
}

var stateColumns = []column{
	{"cluster_id", types.STRING, true},
	{"drones", types.INT64, false},
	{"active_flights", types.INT64, false},
	{"dispatched", types.INT64, false},
	{"alerts_raised", types.INT64, false},
	{"alert_active", types.BOOLEAN, false},
}

// WriteState inserts a dispatcher state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.DispatchStateRow) error {
	return w.WriteStates([]telemetry.DispatchStateRow{row})
}

// WriteStates inserts multiple dispatcher state rows.
func (w *GreptimeDBWriter) WriteStates(rows []telemetry.DispatchStateRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := newTable(w.stateTable, stateColumns)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.ClusterID, int64(r.Drones), int64(r.ActiveFlights), int64(r.Dispatched),
			int64(r.AlertsRaised), r.AlertActive, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(w.stateTable, tbl, len(rows))
}
