package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push every device, then let every device learn from its peers",
	Long: `Run a full sync round: all devices push concurrently, then each device pulls
in registration order. Learned records are written to the vault (and committed
when the vault is versioned).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		engine, err := openEngine(ctx)
		if err != nil {
			fatal("Failed to open vault", err)
		}

		fmt.Println("Syncing...")
		res, err := engine.Sync(ctx)
		printSyncResult(res)
		if err != nil {
			fatal("Sync failed", err)
		}
		if !res.OK() {
			os.Exit(1)
		}
		fmt.Println("Sync completed successfully.")
	},
}

func printSyncResult(res kbsync.SyncResult) {
	for _, id := range res.Pushed {
		fmt.Printf("  %s: pushed, learned %d\n", id, res.Learned[id])
	}
	for _, id := range res.Failed {
		fmt.Printf("  %s: failed\n", id)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
