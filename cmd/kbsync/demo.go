package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync/pkg/adapters/memory"
	"github.com/aretw0/kbsync/pkg/config"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/report"
)

// demoCmd represents the demo command
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the two-device walkthrough in memory",
	Long: `Register the default devices, add one record on each, push both, pull both and
print the report and the integrated view. Nothing is written to disk.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		remote := memory.NewRemote()
		store := core.NewStore(core.WithRemote(remote), core.WithLogger(slog.Default()))

		for _, d := range config.Default().CoreDevices() {
			if err := store.RegisterDevice(d); err != nil {
				fatal("Failed to register device", err)
			}
		}

		now := time.Now()
		for _, r := range demoRecords(now) {
			if err := store.AddRecord(r); err != nil {
				fatal("Failed to add record", err)
			}
		}

		fmt.Println("Pushing...")
		store.Push(ctx, "main-pc")
		store.Push(ctx, "sub-pc")

		fmt.Println("Pulling...")
		store.Pull(ctx, "main-pc")
		store.Pull(ctx, "sub-pc")

		fmt.Println()
		fmt.Print(report.Generate(store, time.Now()))

		fmt.Println()
		fmt.Println("Integrated knowledge:")
		for _, r := range store.Integrate() {
			fmt.Printf("- %s (%s) - %s\n", r.Title, r.Category, r.OriginDevice)
		}
		fmt.Printf("\nRemote received %d packages.\n", len(remote.Packages()))
	},
}

func demoRecords(now time.Time) []core.Record {
	return []core.Record{
		{
			ID:           "rule-001",
			Title:        "Always use a virtual environment",
			Content:      "Python development always happens inside a virtual environment.",
			Category:     core.CategoryRule,
			OriginDevice: "main-pc",
			CreatedAt:    now,
			UpdatedAt:    now,
			Tags:         []string{"python", "environment"},
			Priority:     5,
			Status:       core.StatusActive,
		},
		{
			ID:           "issue-001",
			Title:        "Fast PDCA cycles",
			Content:      "Run PDCA cycles quickly through issue tracking.",
			Category:     core.CategoryIssue,
			OriginDevice: "sub-pc",
			CreatedAt:    now,
			UpdatedAt:    now,
			Tags:         []string{"pdca", "github", "issue"},
			Priority:     4,
			Status:       core.StatusActive,
		},
	}
}

func init() {
	rootCmd.AddCommand(demoCmd)
}
