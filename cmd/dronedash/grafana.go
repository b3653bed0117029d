package main

import (
	"github.com/spf13/cobra"

	"droneops-dispatch/internal/dashboard"
	"droneops-dispatch/internal/logging"
)

func newGrafanaCmd(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "grafana",
		Short: "Render Grafana dashboards for the GreptimeDB tables",
		Long:  "grafana renders dashboards for the position, alert, mission and state tables. GREPTIMEDB_DATASOURCE_UID must be set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			written, err := dashboard.Render(out, cfg.ClusterID, dashboard.DefaultTables())
			if err != nil {
				return err
			}
			log := logging.FromContext(cmd.Context())
			for _, p := range written {
				log.Info("dashboard written", "path", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "build", "Output directory")
	return cmd
}
