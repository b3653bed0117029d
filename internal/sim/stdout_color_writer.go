// ColorStdoutWriter prints human-friendly, colorized dispatch events to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

// ColorStdoutWriter prints one line per flight quarter, arrival, alert and
// mission step. Frame-rate position rows in between are dropped.
type ColorStdoutWriter struct {
	cfg      *config.Config
	out      io.Writer
	once     sync.Once
	mu       sync.Mutex
	quarters map[string]int
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.Config) *ColorStdoutWriter {
	return newColorWriter(cfg, os.Stdout)
}

func newColorWriter(cfg *config.Config, out io.Writer) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: out, quarters: make(map[string]int)}
}

func statusColor(status string) string {
	switch status {
	case "en-route":
		return colorBlue
	case "charging":
		return colorYellow
	default:
		return colorGreen
	}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Dispatch Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Cluster:\t%s\n", w.cfg.ClusterID)
	fmt.Fprintf(tw, "Flight Duration:\t%s\n", w.cfg.AnimationDuration())
	fmt.Fprintf(tw, "Cruise Speed (km/h):\t%.0f\n", w.cfg.ETA.SpeedKmh)
	fmt.Fprintf(tw, "Alert Interval:\t%s\n", w.cfg.AlertInterval())
	tw.Flush()

	fmt.Fprintln(w.out, "\nDrones:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tStatus\tBattery\tStation\n")
	for _, d := range w.cfg.Drones {
		fmt.Fprintf(tw, "%s\t%s%s%s\t%d%%\t%s\n", d.ID, statusColor(string(d.Status)), d.Status, colorReset, d.Battery, d.StationID)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

func stamp(ts time.Time) string {
	return fmt.Sprintf("%s[%s]%s ", colorGray, ts.Format(time.RFC3339), colorReset)
}

// Write prints a position row when the drone enters a new flight quarter.
func (w *ColorStdoutWriter) Write(row telemetry.PositionRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()

	q := int(row.Progress * 4)
	last, seen := w.quarters[row.DroneID]
	if seen && q <= last && row.Progress < 1 {
		return nil
	}
	w.quarters[row.DroneID] = q
	if row.Progress >= 1 {
		delete(w.quarters, row.DroneID)
	}

	fmt.Fprint(w.out, stamp(row.Timestamp))
	fmt.Fprintf(w.out, "%scluster=%s%s ", colorBlue, row.ClusterID, colorReset)
	fmt.Fprintf(w.out, "drone=%s ", row.DroneID)
	fmt.Fprintf(w.out, "%slat=%.5f%s ", colorGreen, row.Lat, colorReset)
	fmt.Fprintf(w.out, "%slon=%.5f%s ", colorYellow, row.Lon, colorReset)
	fmt.Fprintf(w.out, "%sprogress=%3.0f%%%s ", colorCyan, row.Progress*100, colorReset)
	fmt.Fprintf(w.out, "%sstatus=%s%s", statusColor(row.Status), row.Status, colorReset)
	if row.Progress >= 1 {
		fmt.Fprintf(w.out, " %sarrived%s", colorMagenta, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteAlert prints an alert transition.
func (w *ColorStdoutWriter) WriteAlert(row telemetry.AlertRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	col := colorRed
	if row.State != telemetry.AlertRaised {
		col = colorGray
	}
	fmt.Fprintf(w.out, "%s%sALERT %s%s subject=%s blood=%s at=(%.4f,%.4f) %s\n",
		stamp(row.Timestamp), col, row.State, colorReset, row.Subject, row.BloodType, row.Lat, row.Lon, row.Message)
	return nil
}

// WriteMissionEvent prints a replayed mission step.
func (w *ColorStdoutWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s%sMISSION%s %s step=%d type=%s drone=%s %s\n",
		stamp(row.Timestamp), colorCyan, colorReset, row.MissionID, row.Step, row.EventType, row.DroneID, row.Description)
	return nil
}

// WriteState prints dispatcher counters.
func (w *ColorStdoutWriter) WriteState(row telemetry.DispatchStateRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s%sSTATE%s drones=%d flying=%d dispatched=%d alerts=%d alert_active=%t\n",
		stamp(row.Timestamp), colorBlue, colorReset, row.Drones, row.ActiveFlights, row.Dispatched, row.AlertsRaised, row.AlertActive)
	return nil
}
