package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"droneops-dispatch/internal/logging"
	"droneops-dispatch/internal/sim"
)

type missionOptions struct {
	writer writerOptions
	file   string
	list   bool
}

func newMissionCmd(root *rootOptions) *cobra.Command {
	opts := &missionOptions{}
	cmd := &cobra.Command{
		Use:   "mission [id]",
		Short: "Replay a recorded mission",
		Long:  "mission flies a recorded mission leg by leg and exits when the last event is reached.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.FromContext(cmd.Context())
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			off := false
			cfg.Alerts.Enabled = &off

			var files []string
			if opts.file != "" {
				files = append(files, opts.file)
			}
			missions, err := loadMissions(files)
			if err != nil {
				return err
			}

			if opts.list {
				s, err := sim.NewSimulator(cfg, nil, sim.WithMissions(missions...))
				if err != nil {
					return err
				}
				for _, id := range s.Missions() {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			id := "triglav-d3"
			switch {
			case len(args) == 1:
				id = args[0]
			case len(missions) == 1:
				id = missions[0].ID
			}

			writer, err := newWriters(cfg, opts.writer, log)
			if err != nil {
				return err
			}
			defer writer.Close()

			s, err := sim.NewSimulator(cfg, writer, sim.WithLogger(log), sim.WithMissions(missions...))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return replayMission(ctx, s, id)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "Mission YAML file")
	cmd.Flags().BoolVar(&opts.list, "list", false, "List replayable missions and exit")
	cmd.Flags().BoolVar(&opts.writer.printOnly, "print-only", false, "Print rows to STDOUT instead of writing to GreptimeDB")
	cmd.Flags().StringVar(&opts.writer.output, "output", outputJSON, "Console output: auto, tui, json, color, none")
	cmd.Flags().StringVar(&opts.writer.logFile, "log-file", "", "Path to export rows as JSONL")
	return cmd
}

// replayMission starts mission id on s and runs the simulator until the
// replay finishes or ctx is cancelled.
func replayMission(ctx context.Context, s *sim.Simulator, id string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_ = s.Do(ctx, func() {
			if err := s.StartMission(id, cancel); err != nil {
				errCh <- err
				cancel()
			}
		})
	}()
	if err := s.Run(ctx); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
