package main

import (
	"fmt"

	"HappinessInsights/src/charts"

	"github.com/spf13/cobra"
)

func newChartsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Render the exploratory charts as PNG files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			df, err := a.loadExport()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.ChartDir
			}
			files, err := charts.WriteAll(dir, df, a.cfg.TopN)
			for _, f := range files {
				a.logger.Info("chart written", "path", f)
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "output directory (default chart_dir from config)")
	return cmd
}
