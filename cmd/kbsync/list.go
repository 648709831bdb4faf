package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync/pkg/core"
)

var (
	listJSON   bool
	listAll    bool
	listDevice string
	filterTag  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the integrated knowledge",
	Long: `Print the integrated view: active records, deduplicated by ID (first seen wins)
and ranked by priority then recency. --all prints the raw collection instead.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := openEngine(context.Background())
		if err != nil {
			fatal("Failed to open vault", err)
		}

		var records []core.Record
		switch {
		case listDevice != "":
			records = engine.Store.DeviceRecords(listDevice)
		case listAll:
			records = engine.Store.Records()
		default:
			records = engine.Store.Integrate()
		}

		var filtered []core.Record
		for _, r := range records {
			if filterTag != "" && !r.HasTag(filterTag) {
				continue
			}
			filtered = append(filtered, r)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(filtered); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, r := range filtered {
			fmt.Printf("[%d] %s - %s (%s) @%s", r.Priority, r.ID, r.Title, r.Category, r.OriginDevice)
			if len(r.Tags) > 0 {
				fmt.Printf(" #%s", strings.Join(r.Tags, " #"))
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listAll, "all", false, "List every record of every device, in collection order")
	listCmd.Flags().StringVar(&listDevice, "device", "", "List the records owned by one device")
	listCmd.Flags().StringVar(&filterTag, "tag", "", "Filter records by tag")
}
