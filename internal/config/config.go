// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"droneops-dispatch/internal/alert"
	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/planner"
	"droneops-dispatch/internal/replay"
	"droneops-dispatch/internal/trajectory"
)

// Animation controls how dispatched drones fly.
type Animation struct {
	DurationMs      int            `yaml:"duration_ms"`
	DefaultSegments int            `yaml:"default_segments"`
	Curves          map[string]int `yaml:"curves"`
}

// ETA controls the ETA column of the fleet table.
type ETA struct {
	SpeedKmh  float64  `yaml:"speed_kmh"`
	AllowList []string `yaml:"allow_list"`
}

// Alerts configures the mock emergency alert generator.
type Alerts struct {
	Enabled    *bool           `yaml:"enabled"`
	IntervalMs int             `yaml:"interval_ms"`
	DisplayMs  int             `yaml:"display_ms"`
	Subjects   []alert.Subject `yaml:"subjects"`
}

// Replay configures mission replay pacing.
type Replay struct {
	LegMs   int `yaml:"leg_ms"`
	PauseMs int `yaml:"pause_ms"`
}

// Admin configures the HTTP API.
type Admin struct {
	Addr string `yaml:"addr"`
}

// Planner configures terrain-aware route planning. An empty GridFile
// disables the planner. A relative GridFile is resolved against the config
// file's directory.
type Planner struct {
	GridFile     string       `yaml:"grid_file"`
	VelocityMps  float64      `yaml:"velocity_mps"`
	ClimbRateMps float64      `yaml:"climb_rate_mps"`
	MassKg       float64      `yaml:"mass_kg"`
	Wind         planner.Wind `yaml:"wind"`
}

// Config is the root configuration for the dispatch dashboard.
type Config struct {
	ClusterID       string               `yaml:"cluster_id"`
	FrameIntervalMs int                  `yaml:"frame_interval_ms"`
	StateIntervalMs int                  `yaml:"state_interval_ms"`
	Center          geo.Point            `yaml:"center"`
	Animation       Animation            `yaml:"animation"`
	ETA             ETA                  `yaml:"eta"`
	SendOffsets     map[string]geo.Point `yaml:"send_offsets"`
	Alerts          Alerts               `yaml:"alerts"`
	Replay          Replay               `yaml:"replay"`
	Admin           Admin                `yaml:"admin"`
	Planner         Planner              `yaml:"planner"`
	Stations        []fleet.Station      `yaml:"stations"`
	Drones          []fleet.Drone        `yaml:"drones"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads YAML config and validates it against a CUE schema. An empty
// schema path skips schema validation.
func Load(configPath, cueSchemaPath string) (*Config, error) {
	if cueSchemaPath != "" {
		if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if g := cfg.Planner.GridFile; g != "" && !filepath.IsAbs(g) {
		cfg.Planner.GridFile = filepath.Join(filepath.Dir(configPath), g)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ClusterID == "" {
		c.ClusterID = "dispatch-01"
	}
	if c.FrameIntervalMs == 0 {
		c.FrameIntervalMs = int(clock.DefaultFrameInterval / time.Millisecond)
	}
	if c.StateIntervalMs == 0 {
		c.StateIntervalMs = 5000
	}
	if c.Center == (geo.Point{}) {
		c.Center = fleet.Triglav
	}
	if c.Animation.DurationMs == 0 {
		c.Animation.DurationMs = int(trajectory.DefaultDuration / time.Millisecond)
	}
	if c.Animation.DefaultSegments == 0 {
		c.Animation.DefaultSegments = geo.DefaultSegments
	}
	if c.Animation.Curves == nil {
		c.Animation.Curves = fleet.DefaultCurves()
	}
	if c.ETA.SpeedKmh == 0 {
		c.ETA.SpeedKmh = geo.DefaultSpeedKmh
	}
	if c.ETA.AllowList == nil {
		c.ETA.AllowList = []string{"D2", "D3"}
	}
	if c.SendOffsets == nil {
		c.SendOffsets = fleet.DefaultSendOffsets()
	}
	if c.Alerts.Enabled == nil {
		on := true
		c.Alerts.Enabled = &on
	}
	if c.Alerts.IntervalMs == 0 {
		c.Alerts.IntervalMs = int(alert.DefaultInterval / time.Millisecond)
	}
	if c.Alerts.DisplayMs == 0 {
		c.Alerts.DisplayMs = int(alert.DefaultDisplay / time.Millisecond)
	}
	if len(c.Alerts.Subjects) == 0 {
		c.Alerts.Subjects = alert.DefaultSubjects()
	}
	if c.Replay.LegMs == 0 {
		c.Replay.LegMs = int(replay.LegDuration / time.Millisecond)
	}
	if c.Replay.PauseMs == 0 {
		c.Replay.PauseMs = int(replay.WaypointPause / time.Millisecond)
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = ":8080"
	}
	if c.Planner.VelocityMps == 0 {
		c.Planner.VelocityMps = planner.DefaultVelocityMps
	}
	if c.Planner.ClimbRateMps == 0 {
		c.Planner.ClimbRateMps = planner.DefaultClimbRateMps
	}
	if c.Planner.MassKg == 0 {
		c.Planner.MassKg = planner.DefaultMassKg
	}
	if len(c.Stations) == 0 {
		c.Stations = fleet.DefaultStations()
	}
	if len(c.Drones) == 0 {
		c.Drones = fleet.DefaultDrones()
	}
}

// Validate checks the constraints the dispatcher relies on. The CUE schema
// covers the same ground for files; this also guards programmatic configs.
func (c *Config) Validate() error {
	if c.FrameIntervalMs <= 0 || c.StateIntervalMs <= 0 {
		return fmt.Errorf("%w: intervals must be positive", geo.ErrInvalidArgument)
	}
	if c.Animation.DurationMs <= 0 {
		return fmt.Errorf("%w: animation duration %dms", geo.ErrInvalidArgument, c.Animation.DurationMs)
	}
	if c.Animation.DefaultSegments < 1 {
		return fmt.Errorf("%w: default segments %d", geo.ErrInvalidArgument, c.Animation.DefaultSegments)
	}
	if c.ETA.SpeedKmh <= 0 {
		return fmt.Errorf("%w: eta speed %v", geo.ErrInvalidArgument, c.ETA.SpeedKmh)
	}
	if c.Alerts.IntervalMs <= 0 || c.Alerts.DisplayMs <= 0 {
		return fmt.Errorf("%w: alert interval and display must be positive", geo.ErrInvalidArgument)
	}
	if c.Replay.LegMs <= 0 || c.Replay.PauseMs < 0 {
		return fmt.Errorf("%w: replay leg %dms pause %dms", geo.ErrInvalidArgument, c.Replay.LegMs, c.Replay.PauseMs)
	}
	if c.Planner.VelocityMps <= 0 || c.Planner.ClimbRateMps <= 0 || c.Planner.MassKg <= 0 {
		return fmt.Errorf("%w: planner velocity, climb rate and mass must be positive", geo.ErrInvalidArgument)
	}
	stations := make(map[string]bool, len(c.Stations))
	for _, s := range c.Stations {
		stations[s.ID] = true
	}
	for _, d := range c.Drones {
		if !stations[d.StationID] {
			return fmt.Errorf("%w: drone %s references unknown station %q", geo.ErrInvalidArgument, d.ID, d.StationID)
		}
	}
	return nil
}

// FrameInterval is the animation frame period.
func (c *Config) FrameInterval() time.Duration { return ms(c.FrameIntervalMs) }

// StateInterval is the period of dispatcher state rows.
func (c *Config) StateInterval() time.Duration { return ms(c.StateIntervalMs) }

// AnimationDuration is how long each dispatched flight lasts.
func (c *Config) AnimationDuration() time.Duration { return ms(c.Animation.DurationMs) }

// AlertInterval is the gap between mock alerts.
func (c *Config) AlertInterval() time.Duration { return ms(c.Alerts.IntervalMs) }

// AlertDisplay is how long an alert stays visible.
func (c *Config) AlertDisplay() time.Duration { return ms(c.Alerts.DisplayMs) }

// AlertsEnabled reports whether the alert generator runs.
func (c *Config) AlertsEnabled() bool { return c.Alerts.Enabled == nil || *c.Alerts.Enabled }

// ReplayLeg is the duration of one replayed leg.
func (c *Config) ReplayLeg() time.Duration { return ms(c.Replay.LegMs) }

// ReplayPause is the dwell at each replayed waypoint.
func (c *Config) ReplayPause() time.Duration { return ms(c.Replay.PauseMs) }

// PlannerParams returns the airframe parameters for route planning.
func (c *Config) PlannerParams() planner.Params {
	return planner.Params{
		VelocityMps:  c.Planner.VelocityMps,
		ClimbRateMps: c.Planner.ClimbRateMps,
		MassKg:       c.Planner.MassKg,
		Wind:         c.Planner.Wind,
	}
}

// NewPlanner loads the configured grid. It returns nil when no grid file is set.
func (c *Config) NewPlanner() (*planner.Planner, error) {
	if c.Planner.GridFile == "" {
		return nil, nil
	}
	grid, err := planner.LoadGrid(c.Planner.GridFile)
	if err != nil {
		return nil, err
	}
	return planner.New(grid, c.PlannerParams())
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
