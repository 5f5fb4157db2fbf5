package main

import (
	"HappinessInsights/src/report"

	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		markdown bool
		topN     int
		years    []int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print summary statistics, rankings, correlations and threshold queries",
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
			if topN <= 0 {
				topN = a.cfg.TopN
			}
			r, err := report.Build(df, report.Options{TopN: topN, Years: years})
			if err != nil {
				return err
			}
			for _, w := range r.Warnings {
				a.logger.Warning("report", "warning", w)
			}

			mode := report.ASCII
			if markdown {
				mode = report.Markdown
			}
			return r.Render(cmd.OutOrStdout(), mode)
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render Markdown tables")
	cmd.Flags().IntVar(&topN, "top", 0, "number of rows in rankings (default top_n from config)")
	cmd.Flags().IntSliceVar(&years, "years", nil, "years for the factor contribution table (default all)")
	return cmd
}
