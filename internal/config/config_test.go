package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"droneops-dispatch/internal/geo"
)

const schemaPath = "../../schemas/dashboard.cue"

func TestLoadConfig_Repository(t *testing.T) {
	cfg, err := Load("../../config/dashboard.yaml", schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ClusterID != "triglav-01" {
		t.Errorf("unexpected cluster id %s", cfg.ClusterID)
	}
	if len(cfg.Drones) != 4 || len(cfg.Stations) != 2 {
		t.Errorf("unexpected rosters: %d drones, %d stations", len(cfg.Drones), len(cfg.Stations))
	}
	if cfg.Animation.Curves["D3"] != 3 {
		t.Errorf("expected D3 to use 3 curves, got %d", cfg.Animation.Curves["D3"])
	}
	if cfg.SendOffsets["D2"] != geo.Pt(-0.2, 0) {
		t.Errorf("unexpected D2 offset %v", cfg.SendOffsets["D2"])
	}
	if cfg.AnimationDuration() != 2*time.Second {
		t.Errorf("unexpected animation duration %s", cfg.AnimationDuration())
	}
	if cfg.AlertInterval() != 25*time.Second || cfg.AlertDisplay() != 30*time.Second {
		t.Errorf("unexpected alert timing %s/%s", cfg.AlertInterval(), cfg.AlertDisplay())
	}
	if !cfg.AlertsEnabled() {
		t.Errorf("alerts should be enabled")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := Load("testdata/minimal.yaml", schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ClusterID != "test-cluster" {
		t.Errorf("unexpected cluster id %s", cfg.ClusterID)
	}
	if cfg.AlertsEnabled() {
		t.Errorf("alerts should be disabled")
	}
	if cfg.AlertInterval() != time.Second {
		t.Errorf("unexpected alert interval %s", cfg.AlertInterval())
	}
	if cfg.ReplayLeg() != 2*time.Second || cfg.ReplayPause() != 500*time.Millisecond {
		t.Errorf("unexpected replay pacing %s/%s", cfg.ReplayLeg(), cfg.ReplayPause())
	}
	if len(cfg.Drones) != 4 || len(cfg.Alerts.Subjects) != 2 {
		t.Errorf("default rosters missing")
	}
	if cfg.Admin.Addr != ":8080" {
		t.Errorf("unexpected admin addr %s", cfg.Admin.Addr)
	}
}

func TestLoadConfig_SchemaRejectsZeroDuration(t *testing.T) {
	_, err := Load("testdata/bad_duration.yaml", schemaPath)
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_SchemaRejectsUnknownStatus(t *testing.T) {
	if _, err := Load("testdata/bad_status.yaml", schemaPath); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestLoadConfig_UnknownStation(t *testing.T) {
	_, err := Load("testdata/unknown_station.yaml", schemaPath)
	if !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestLoadConfig_WithoutSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("cluster_id: bare\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ClusterID != "bare" {
		t.Errorf("unexpected cluster id %s", cfg.ClusterID)
	}
}

func TestValidateBytes_MissingDefinition(t *testing.T) {
	err := ValidateBytes("cfg.yaml", []byte("cluster_id: x\n"), "s.cue", []byte("#Other: {}\n"))
	if err == nil || !strings.Contains(err.Error(), "#Dashboard") {
		t.Fatalf("expected missing definition error, got %v", err)
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.Animation.DurationMs = -1
	if err := cfg.Validate(); !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestLoadConfig_EmptyOverridesStayEmpty(t *testing.T) {
	cfg, err := Load("testdata/no_overrides.yaml", schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if len(cfg.Animation.Curves) != 0 {
		t.Errorf("expected no curve overrides, got %v", cfg.Animation.Curves)
	}
	if len(cfg.SendOffsets) != 0 {
		t.Errorf("expected no send offsets, got %v", cfg.SendOffsets)
	}
}

func TestLoadConfig_PlannerGridResolvedAgainstConfigDir(t *testing.T) {
	cfg, err := Load("../../config/dashboard.yaml", schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if want := filepath.Join("../../config", "terrain.yaml"); cfg.Planner.GridFile != want {
		t.Errorf("grid file = %s, want %s", cfg.Planner.GridFile, want)
	}
	p, err := cfg.NewPlanner()
	if err != nil {
		t.Fatalf("NewPlanner() returned error: %v", err)
	}
	if p == nil || p.Grid().Rows() == 0 {
		t.Fatal("expected a planner with a loaded grid")
	}
	if p.Params().VelocityMps != 15 {
		t.Errorf("unexpected velocity %v", p.Params().VelocityMps)
	}
}

func TestLoadConfig_PlannerOffByDefault(t *testing.T) {
	cfg, err := Load("testdata/minimal.yaml", schemaPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	p, err := cfg.NewPlanner()
	if err != nil || p != nil {
		t.Fatalf("expected no planner, got %v, %v", p, err)
	}
	if cfg.Planner.MassKg != 24 || cfg.Planner.ClimbRateMps != 2.5 {
		t.Errorf("unexpected planner defaults %+v", cfg.Planner)
	}
}
