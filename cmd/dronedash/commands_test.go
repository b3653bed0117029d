package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
)

// runCmd executes the root command with args. The default config path does
// not exist in the package directory, so the built-in configuration is used.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	clearSinkEnv(t)
	t.Setenv("CLUSTER_ID", "")
	t.Setenv("FRAME_INTERVAL", "")
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestETACommand(t *testing.T) {
	out, err := runCmd(t, "eta")
	if err != nil {
		t.Fatalf("eta: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header and 4 drones, got:\n%s", out)
	}
	if !strings.HasPrefix(lines[0], "DRONE") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	rows := map[string]string{}
	for _, l := range lines[1:] {
		rows[strings.Fields(l)[0]] = l
	}
	if !strings.Contains(rows["D2"], "km") || !strings.HasSuffix(rows["D2"], "min") {
		t.Fatalf("expected ETA for D2, got %q", rows["D2"])
	}
	if strings.Contains(rows["D1"], "km") {
		t.Fatalf("D1 is not on the allow list, got %q", rows["D1"])
	}

	out, err = runCmd(t, "eta", "--all")
	if err != nil {
		t.Fatalf("eta --all: %v", err)
	}
	if strings.Count(out, " km") != 4 {
		t.Fatalf("expected every drone to have an ETA:\n%s", out)
	}
}

func TestPathCommandBetweenPoints(t *testing.T) {
	out, err := runCmd(t, "path", "--from", "13.85,46.38", "--to", "13.65,46.38", "--segments", "2")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	var feature struct {
		Type     string `json:"type"`
		Geometry struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.Unmarshal([]byte(out), &feature); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if feature.Geometry.Type != "LineString" {
		t.Fatalf("unexpected geometry %q", feature.Geometry.Type)
	}
	if n := len(feature.Geometry.Coordinates); n != 2*geo.SamplesPerLeg+1 {
		t.Fatalf("expected %d points, got %d", 2*geo.SamplesPerLeg+1, n)
	}
}

func TestPathCommandForDrone(t *testing.T) {
	out, err := runCmd(t, "path", "--drone", "D3")
	if err != nil {
		t.Fatalf("path --drone: %v", err)
	}
	if !strings.Contains(out, `"drone":"D3"`) {
		t.Fatalf("expected drone property in %s", out)
	}

	if _, err := runCmd(t, "path", "--drone", "D99"); err == nil {
		t.Fatal("expected error for unknown drone")
	}
}

func TestPathCommandNeedsEndpoints(t *testing.T) {
	if _, err := runCmd(t, "path"); err == nil {
		t.Fatal("expected error without --drone or --from/--to")
	}
	if _, err := runCmd(t, "path", "--from", "x,y", "--to", "1,1"); !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestPathCommandPlan(t *testing.T) {
	out, err := runCmd(t, "path", "--plan", "--to", "13.82,46.35", "--grid", "../../config/terrain.yaml")
	if err != nil {
		t.Fatalf("path --plan: %v", err)
	}
	var feature struct {
		Geometry struct {
			Type        string      `json:"type"`
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	}
	if err := json.Unmarshal([]byte(out), &feature); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if feature.Geometry.Type != "LineString" || len(feature.Geometry.Coordinates) < 2 {
		t.Fatalf("unexpected geometry %+v", feature.Geometry)
	}
	if feature.Properties["station"] != "S1" {
		t.Fatalf("expected route from S1, got %v", feature.Properties["station"])
	}
	if e, _ := feature.Properties["energy_wh"].(float64); e <= 0 {
		t.Fatalf("expected positive energy, got %v", feature.Properties["energy_wh"])
	}

	out, err = runCmd(t, "path", "--plan", "--from", "13.79,46.41", "--to", "13.89,46.34", "--grid", "../../config/terrain.yaml")
	if err != nil {
		t.Fatalf("path --plan --from: %v", err)
	}
	if !strings.Contains(out, `"station":""`) {
		t.Fatalf("expected no station for an explicit start: %s", out)
	}
}

func TestPathCommandPlanNeedsGrid(t *testing.T) {
	if _, err := runCmd(t, "path", "--plan", "--to", "13.82,46.35"); err == nil {
		t.Fatal("expected error without an elevation grid")
	}
	if _, err := runCmd(t, "path", "--plan", "--grid", "../../config/terrain.yaml"); err == nil {
		t.Fatal("expected error without --to")
	}
	_, err := runCmd(t, "path", "--plan", "--to", "15,46.35", "--grid", "../../config/terrain.yaml")
	if !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument off the grid, got %v", err)
	}
}

func TestMissionList(t *testing.T) {
	out, err := runCmd(t, "mission", "--list")
	if err != nil {
		t.Fatalf("mission --list: %v", err)
	}
	if !strings.Contains(out, "triglav-d3") {
		t.Fatalf("expected built-in mission, got %q", out)
	}
}

func TestMissionUnknownID(t *testing.T) {
	_, err := runCmd(t, "mission", "nope", "--output", "none")
	if !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplayRequiresInput(t *testing.T) {
	if _, err := runCmd(t, "replay"); err == nil {
		t.Fatal("expected error without --input")
	}
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint(" 13.85 , 46.38 ")
	if err != nil {
		t.Fatalf("parsePoint: %v", err)
	}
	if p != geo.Pt(13.85, 46.38) {
		t.Fatalf("unexpected point %v", p)
	}
	for _, bad := range []string{"", "1", "1,2,3", "a,1", "1,b"} {
		if _, err := parsePoint(bad); !errors.Is(err, geo.ErrInvalidArgument) {
			t.Fatalf("parsePoint(%q): expected invalid argument, got %v", bad, err)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CLUSTER_ID", "alpine-02")
	t.Setenv("FRAME_INTERVAL", "50ms")
	cfg := config.Default()
	if err := applyEnv(cfg); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.ClusterID != "alpine-02" || cfg.FrameIntervalMs != 50 {
		t.Fatalf("env not applied: %s %d", cfg.ClusterID, cfg.FrameIntervalMs)
	}

	t.Setenv("FRAME_INTERVAL", "soon")
	if err := applyEnv(config.Default()); err == nil {
		t.Fatal("expected error for bad FRAME_INTERVAL")
	}
	t.Setenv("FRAME_INTERVAL", "-1s")
	if err := applyEnv(config.Default()); !errors.Is(err, geo.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestGrafanaCommand(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")
	dir := t.TempDir()
	if _, err := runCmd(t, "grafana", "--out", dir); err != nil {
		t.Fatalf("grafana: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "dispatch-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	if !strings.Contains(string(b), "dispatch-01") {
		t.Fatalf("expected default cluster in dashboard")
	}
}
