package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"droneops-dispatch/internal/telemetry"
)

// JSONStdoutWriter prints every row as one JSON line to STDOUT.
type JSONStdoutWriter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

// NewJSONWriter creates a JSONStdoutWriter writing to out.
func NewJSONWriter(out io.Writer) *JSONStdoutWriter {
	return &JSONStdoutWriter{out: out}
}

// envelope tags each line so mixed streams stay parseable.
type envelope struct {
	Kind string `json:"kind"`
	Row  any    `json:"row"`
}

func (w *JSONStdoutWriter) emit(kind string, row any) error {
	data, err := json.Marshal(envelope{Kind: kind, Row: row})
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a position row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.PositionRow) error {
	return w.emit("position", row)
}

// WriteBatch outputs multiple position rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.PositionRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert outputs an alert transition in JSON format.
func (w *JSONStdoutWriter) WriteAlert(row telemetry.AlertRow) error {
	return w.emit("alert", row)
}

// WriteMissionEvent outputs a mission milestone in JSON format.
func (w *JSONStdoutWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	return w.emit("mission_event", row)
}

// WriteState outputs a dispatcher state row in JSON format.
func (w *JSONStdoutWriter) WriteState(row telemetry.DispatchStateRow) error {
	return w.emit("state", row)
}
