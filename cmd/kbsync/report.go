package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync/pkg/report"
)

var (
	reportSync    bool
	reportMetrics bool
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a Markdown sync report",
	Long: `Print devices, the integrated knowledge summary and the latest sync history.
History lives in memory, so --sync runs a sync round first to have one.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		engine, err := openEngine(ctx)
		if err != nil {
			fatal("Failed to open vault", err)
		}

		if reportSync {
			if _, err := engine.Sync(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: sync round incomplete: %v\n", err)
			}
		}

		fmt.Print(report.Generate(engine.Store, time.Now()))

		if reportMetrics {
			fmt.Println()
			fmt.Println("## Metrics")
			if err := writeMetrics(); err != nil {
				fatal("Failed to gather metrics", err)
			}
		}
	},
}

func writeMetrics() error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportSync, "sync", false, "Run a sync round before reporting")
	reportCmd.Flags().BoolVar(&reportMetrics, "metrics", false, "Append the Prometheus metrics of this run")
}
