package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"droneops-dispatch/internal/admin"
	"droneops-dispatch/internal/logging"
	"droneops-dispatch/internal/replay"
	"droneops-dispatch/internal/sim"
)

type serveOptions struct {
	writer   writerOptions
	addr     string
	noAdmin  bool
	noAlerts bool
	missions []string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live dispatch dashboard",
		Long:  "serve runs the dispatcher, the mock alert generator and the admin API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.FromContext(cmd.Context())
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if opts.noAlerts {
				off := false
				cfg.Alerts.Enabled = &off
			}
			if opts.addr != "" {
				cfg.Admin.Addr = opts.addr
			}
			missions, err := loadMissions(opts.missions)
			if err != nil {
				return err
			}
			routes, err := cfg.NewPlanner()
			if err != nil {
				return err
			}

			var hub *admin.Hub
			if !opts.noAdmin {
				hub = admin.NewHub(log)
				opts.writer.extra = append(opts.writer.extra, hub)
			}
			writer, err := newWriters(cfg, opts.writer, log)
			if err != nil {
				return err
			}
			defer writer.Close()

			simulator, err := sim.NewSimulator(cfg, writer, sim.WithLogger(log), sim.WithMissions(missions...), sim.WithPlanner(routes))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !opts.noAdmin {
				srv := admin.NewServer(simulator, hub, writer, log)
				go func() {
					if err := srv.Start(ctx, cfg.Admin.Addr); err != nil {
						log.Error("admin server failed", "error", err)
						stop()
					}
				}()
			}
			return simulator.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&opts.writer.printOnly, "print-only", false, "Print rows to STDOUT instead of writing to GreptimeDB")
	cmd.Flags().StringVar(&opts.writer.output, "output", outputAuto, "Console output: auto, tui, json, color, none")
	cmd.Flags().StringVar(&opts.writer.logFile, "log-file", "", "Path to export rows as JSONL")
	cmd.Flags().StringVar(&opts.addr, "admin-addr", "", "Admin API listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.noAdmin, "no-admin", false, "Do not start the admin API")
	cmd.Flags().BoolVar(&opts.noAlerts, "no-alerts", false, "Disable the mock alert generator")
	cmd.Flags().StringSliceVar(&opts.missions, "mission-file", nil, "Extra mission YAML files to make replayable")
	return cmd
}

func loadMissions(paths []string) ([]replay.Mission, error) {
	var out []replay.Mission
	for _, p := range paths {
		m, err := replay.Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}
