package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"droneops-dispatch/internal/clock"
	"droneops-dispatch/internal/fleet"
	"droneops-dispatch/internal/trajectory"
)

func newETACmd(root *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "eta",
		Short: "Print the fleet ETA table",
		Long:  "eta prints each drone's distance and ETA to its station, honouring the configured allow list.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			x, err := fleet.NewDispatcher(cfg.Drones, cfg.Stations,
				trajectory.NewPlayer(clock.NewManual(time.Now())),
				fleet.WithSpeed(cfg.ETA.SpeedKmh))
			if err != nil {
				return err
			}
			pred := fleet.EnRouteAllowList(cfg.ETA.AllowList...)
			if all {
				pred = nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DRONE\tSTATUS\tBATTERY\tSTATION\tDISTANCE\tETA")
			for _, row := range x.ETAs(pred) {
				d, err := x.Drone(row.DroneID)
				if err != nil {
					return err
				}
				dist, eta := "-", "-"
				if row.Shown {
					dist = fmt.Sprintf("%.2f km", row.DistanceKm)
					eta = fmt.Sprintf("%d min", row.Minutes)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d%%\t%s\t%s\t%s\n", d.ID, d.Status, d.Battery, row.StationID, dist, eta)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show ETAs for every drone")
	return cmd
}
