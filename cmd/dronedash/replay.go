package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"droneops-dispatch/internal/logging"
	"droneops-dispatch/internal/sim"
)

type replayOptions struct {
	writer writerOptions
	input  string
	speed  float64
}

func newReplayCmd(root *rootOptions) *cobra.Command {
	opts := &replayOptions{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a position log file",
		Long:  "replay feeds position rows from a JSONL log back into GreptimeDB, NATS, Redis or STDOUT.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.FromContext(cmd.Context())
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			writer, err := newWriters(cfg, opts.writer, log)
			if err != nil {
				return err
			}
			defer writer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			n, err := sim.ReplayLogFile(ctx, opts.input, writer, opts.speed)
			log.Info("replay finished", "rows", n, "input", opts.input)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.input, "input", "", "Path to position log file")
	cmd.Flags().Float64Var(&opts.speed, "speed", 1.0, "Playback speed multiplier (0 replays without delay)")
	cmd.Flags().BoolVar(&opts.writer.printOnly, "print-only", false, "Print rows to STDOUT instead of writing to GreptimeDB")
	cmd.Flags().StringVar(&opts.writer.output, "output", outputJSON, "Console output: auto, tui, json, color, none")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
