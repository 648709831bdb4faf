package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pullAll bool

// pullCmd represents the pull command
var pullCmd = &cobra.Command{
	Use:   "pull [device]",
	Short: "Learn peer records into a device",
	Long: `Copy the active records of the other devices that the device does not hold yet
into its own directory, tagged "learned". With --all every device pulls in
registration order.`,
	Args: deviceArgs(&pullAll),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		engine, err := openEngine(ctx)
		if err != nil {
			fatal("Failed to open vault", err)
		}

		targets := args
		if pullAll {
			targets = nil
			for _, d := range engine.Store.Devices() {
				targets = append(targets, d.ID)
			}
		}

		failed := false
		for _, id := range targets {
			n, ok, err := engine.Pull(ctx, id)
			if !ok {
				if err != nil {
					fmt.Printf("%s: pull failed: %v\n", id, err)
				} else {
					fmt.Printf("%s: pull failed\n", id)
				}
				failed = true
				continue
			}
			fmt.Printf("%s: learned %d records\n", id, n)
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
	pullCmd.Flags().BoolVar(&pullAll, "all", false, "Pull every device")
}
