package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/logging"
)

const (
	defaultConfigPath = "config/dashboard.yaml"
	defaultSchemaPath = "schemas/dashboard.cue"
)

type rootOptions struct {
	configPath string
	schemaPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "dronedash",
		Short:         "Drone dispatch dashboard",
		Long:          "dronedash animates drone dispatches, raises mock emergency alerts and replays missions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()
			l := logging.NewWithLevel(cmd.ErrOrStderr(), opts.logLevel)
			cmd.SetContext(logging.NewContext(cmd.Context(), l))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to dashboard configuration YAML")
	cmd.PersistentFlags().StringVar(&opts.schemaPath, "schema", defaultSchemaPath, "Path to CUE schema file (empty skips validation)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newMissionCmd(opts),
		newReplayCmd(opts),
		newETACmd(opts),
		newPathCmd(opts),
		newGrafanaCmd(opts),
	)
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configured file, falling back to the built-in
// configuration when the default path does not exist, then applies env
// overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath, o.schemaPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && o.configPath == defaultConfigPath:
		cfg = config.Default()
	default:
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *config.Config) error {
	if id := os.Getenv("CLUSTER_ID"); id != "" {
		cfg.ClusterID = id
	}
	if v := os.Getenv("FRAME_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid FRAME_INTERVAL: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: FRAME_INTERVAL %s", geo.ErrInvalidArgument, d)
		}
		cfg.FrameIntervalMs = int(d / time.Millisecond)
		if cfg.FrameIntervalMs == 0 {
			cfg.FrameIntervalMs = 1
		}
	}
	return cfg.Validate()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parsePoint parses "lon,lat".
func parsePoint(s string) (geo.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Point{}, fmt.Errorf("%w: point %q, want lon,lat", geo.ErrInvalidArgument, s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: longitude %q", geo.ErrInvalidArgument, parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("%w: latitude %q", geo.ErrInvalidArgument, parts[1])
	}
	p := geo.Pt(lon, lat)
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("%w: point %q", geo.ErrInvalidArgument, s)
	}
	return p, nil
}
