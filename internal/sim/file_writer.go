package sim

import (
	"encoding/json"
	"os"
	"sync"

	"droneops-dispatch/internal/telemetry"
)

// FileWriter writes rows to JSONL files, one file per row kind.
type FileWriter struct {
	mu         sync.Mutex
	files      []*os.File
	posEnc     *json.Encoder
	alertEnc   *json.Encoder
	missionEnc *json.Encoder
	stateEnc   *json.Encoder
}

// FilePaths names the JSONL outputs. Empty paths are skipped, except
// Positions which is required.
type FilePaths struct {
	Positions string
	Alerts    string
	Missions  string
	States    string
}

// LogFilePaths derives sibling paths from a base position log path.
func LogFilePaths(base string) FilePaths {
	return FilePaths{
		Positions: base,
		Alerts:    base + ".alerts",
		Missions:  base + ".missions",
		States:    base + ".state",
	}
}

// NewFileWriter creates a FileWriter.
func NewFileWriter(paths FilePaths) (*FileWriter, error) {
	fw := &FileWriter{}
	open := func(path string) (*json.Encoder, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.files = append(fw.files, f)
		return json.NewEncoder(f), nil
	}
	var err error
	if fw.posEnc, err = open(paths.Positions); err != nil {
		return nil, err
	}
	if fw.alertEnc, err = open(paths.Alerts); err != nil {
		return nil, err
	}
	if fw.missionEnc, err = open(paths.Missions); err != nil {
		return nil, err
	}
	if fw.stateEnc, err = open(paths.States); err != nil {
		return nil, err
	}
	return fw, nil
}

func (f *FileWriter) encode(enc *json.Encoder, v any) error {
	if enc == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return enc.Encode(v)
}

// Write logs a single position row.
func (f *FileWriter) Write(row telemetry.PositionRow) error {
	return f.encode(f.posEnc, row)
}

// WriteBatch logs multiple position rows.
func (f *FileWriter) WriteBatch(rows []telemetry.PositionRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteAlert logs an alert row, if enabled.
func (f *FileWriter) WriteAlert(row telemetry.AlertRow) error {
	return f.encode(f.alertEnc, row)
}

// WriteMissionEvent logs a mission row, if enabled.
func (f *FileWriter) WriteMissionEvent(row telemetry.MissionEventRow) error {
	return f.encode(f.missionEnc, row)
}

// WriteState logs a dispatcher state row, if enabled.
func (f *FileWriter) WriteState(row telemetry.DispatchStateRow) error {
	return f.encode(f.stateEnc, row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var err error
	for _, file := range f.files {
		if e := file.Close(); e != nil && err == nil {
			err = e
		}
	}
	f.files = nil
	return err
}
