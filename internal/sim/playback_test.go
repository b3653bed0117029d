package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"droneops-dispatch/internal/telemetry"
)

type collectWriter struct{ rows []telemetry.PositionRow }

func (c *collectWriter) Write(r telemetry.PositionRow) error {
	c.rows = append(c.rows, r)
	return nil
}

func encodeRows(t *testing.T, rows []telemetry.PositionRow) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	return &buf
}

func TestReplayLog(t *testing.T) {
	rows := []telemetry.PositionRow{
		{ClusterID: "c1", DroneID: "D1", Timestamp: time.Unix(0, 0)},
		{ClusterID: "c1", DroneID: "D2", Timestamp: time.Unix(1, 0)},
	}
	cw := &collectWriter{}
	n, err := ReplayLog(context.Background(), encodeRows(t, rows), cw, 0)
	if err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if n != len(rows) || len(cw.rows) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(cw.rows))
	}
	for i, r := range rows {
		if cw.rows[i].DroneID != r.DroneID {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.rows[i], r)
		}
	}
}

func TestReplayLogSpeedUp(t *testing.T) {
	rows := []telemetry.PositionRow{
		{DroneID: "D1", Timestamp: time.Unix(0, 0)},
		{DroneID: "D1", Timestamp: time.Unix(1, 0)},
	}
	start := time.Now()
	if _, err := ReplayLog(context.Background(), encodeRows(t, rows), &collectWriter{}, 20); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if el := time.Since(start); el < 40*time.Millisecond || el > time.Second {
		t.Fatalf("unexpected pacing %s", el)
	}
}

func TestReplayLogCancelled(t *testing.T) {
	rows := []telemetry.PositionRow{
		{DroneID: "D1", Timestamp: time.Unix(0, 0)},
		{DroneID: "D1", Timestamp: time.Unix(60, 0)},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cw := &collectWriter{}
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	n, err := ReplayLog(ctx, encodeRows(t, rows), cw, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row before cancel, got %d", n)
	}
}

func TestReplayLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.jsonl")
	buf := encodeRows(t, []telemetry.PositionRow{{DroneID: "D4"}})
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cw := &collectWriter{}
	if _, err := ReplayLogFile(context.Background(), path, cw, 0); err != nil {
		t.Fatalf("ReplayLogFile: %v", err)
	}
	if len(cw.rows) != 1 || cw.rows[0].DroneID != "D4" {
		t.Fatalf("unexpected rows %+v", cw.rows)
	}
	if _, err := ReplayLogFile(context.Background(), path+".missing", cw, 0); err == nil {
		t.Fatal("expected error for missing file")
	}
}
