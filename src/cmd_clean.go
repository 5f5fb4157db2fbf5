package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Merge the yearly sources, fill missing values and write the export",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			df, err := a.clean()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows to %s\n", df.Nrow(), a.cfg.Output)
			return nil
		},
	}
}
