// happiness 合并世界幸福报告的年度数据，生成报告、图表，并提供看板
//
// 用法:
//
//	happiness clean   [--config=config.yaml]
//	happiness report  [--markdown] [--top=10]
//	happiness charts  [--dir=charts]
//	happiness serve   [--addr=:8080] [--rebuild="@every 1h"]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "happiness",
		Short: "Merge the World Happiness yearly reports and explore the result",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		Version:      version,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $HAPPINESS_CONFIG)")

	root.AddCommand(newCleanCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newChartsCmd())
	root.AddCommand(newServeCmd())
	return root
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
