package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/config"
	"droneops-dispatch/internal/geo"
	"droneops-dispatch/internal/planner"
	"droneops-dispatch/internal/sim"
)

type pathOptions struct {
	drone    string
	from     string
	to       string
	segments int
	plan     bool
	grid     string
}

func newPathCmd(root *rootOptions) *cobra.Command {
	opts := &pathOptions{}
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print a flight path as GeoJSON",
		Long: "path prints the curved path a drone would fly, either for --drone's send destination or between --from and --to.\n" +
			"With --plan it prints a terrain-aware route to --to instead, from --from or else the nearest station.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			var out []byte
			if opts.plan {
				out, err = plannedPath(cfg, opts)
			} else if opts.drone != "" {
				out, err = dronePath(cfg, opts.drone)
			} else {
				out, err = pointPath(opts)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&opts.drone, "drone", "", "Drone whose send path to print")
	cmd.Flags().StringVar(&opts.from, "from", "", "Start point as lon,lat")
	cmd.Flags().StringVar(&opts.to, "to", "", "End point as lon,lat")
	cmd.Flags().IntVar(&opts.segments, "segments", geo.DefaultSegments, "Number of curves")
	cmd.Flags().BoolVar(&opts.plan, "plan", false, "Plan a terrain-aware route over the elevation grid")
	cmd.Flags().StringVar(&opts.grid, "grid", "", "Elevation grid YAML (overrides planner.grid_file)")
	cmd.MarkFlagsMutuallyExclusive("drone", "from")
	cmd.MarkFlagsMutuallyExclusive("drone", "plan")
	return cmd
}

func dronePath(cfg *config.Config, id string) ([]byte, error) {
	s, err := sim.NewSimulator(cfg, nil, sim.WithScheduler(clock.NewManual(time.Now())))
	if err != nil {
		return nil, err
	}
	ok, err := s.Send(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("drone %q cannot be dispatched", id)
	}
	return s.PathGeoJSON(id)
}

func pointPath(opts *pathOptions) ([]byte, error) {
	if opts.from == "" || opts.to == "" {
		return nil, fmt.Errorf("either --drone or --from/--to is required")
	}
	from, err := parsePoint(opts.from)
	if err != nil {
		return nil, err
	}
	to, err := parsePoint(opts.to)
	if err != nil {
		return nil, err
	}
	path, err := geo.GeneratePath(from, to, opts.segments)
	if err != nil {
		return nil, err
	}
	return path.GeoJSON("path", map[string]interface{}{"curves": opts.segments, "points": path.Len()})
}

func plannedPath(cfg *config.Config, opts *pathOptions) ([]byte, error) {
	if opts.to == "" {
		return nil, fmt.Errorf("--plan needs --to")
	}
	to, err := parsePoint(opts.to)
	if err != nil {
		return nil, err
	}
	if opts.grid != "" {
		cfg.Planner.GridFile = opts.grid
	}
	p, err := cfg.NewPlanner()
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no elevation grid configured, set planner.grid_file or pass --grid")
	}
	var route planner.Route
	if opts.from != "" {
		from, err := parsePoint(opts.from)
		if err != nil {
			return nil, err
		}
		route, err = p.Plan(from, to)
		if err != nil {
			return nil, err
		}
	} else if route, err = p.PlanFrom(cfg.Stations, to); err != nil {
		return nil, err
	}
	return route.Points.GeoJSON("plan", map[string]interface{}{
		"station":    route.Station,
		"energy_wh":  route.EnergyWh,
		"seconds":    route.Seconds,
		"distance_m": route.DistanceM,
		"points":     route.Points.Len(),
	})
}
