package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/report"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [device]",
	Short: "Show the sync status of a device (or the engine state)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := openEngine(context.Background())
		if err != nil {
			fatal("Failed to open vault", err)
		}

		if len(args) == 0 {
			if statusJSON {
				writeJSON(engine.State())
				return
			}
			for _, d := range engine.Store.Devices() {
				status, _ := engine.Store.DeviceStatus(d.ID)
				printStatus(status)
			}
			return
		}

		status, ok := engine.Store.DeviceStatus(args[0])
		if !ok {
			fatal("Unknown device", &core.UnknownDeviceError{DeviceID: args[0]})
		}
		if statusJSON {
			writeJSON(status)
			return
		}
		printStatus(status)
	},
}

func printStatus(s core.DeviceStatus) {
	fmt.Printf("%s (%s)\n", s.Device.ID, s.Device.Name)
	fmt.Printf("  platform: %s, account: %s, role: %s\n", s.Device.Platform, s.Device.Account, s.Device.Role)
	fmt.Printf("  knowledge: %d of %d\n", s.KnowledgeCount, s.TotalKnowledge)
	fmt.Printf("  status: %s\n", s.State)
	if s.Latest != nil {
		fmt.Printf("  last sync: %s %s at %s\n", s.Latest.Direction, s.Latest.Outcome, s.Latest.Timestamp.Format(report.TimeLayout))
	}
}

func writeJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Failed to encode JSON", err)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
}
