package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pushAll bool

// pushCmd represents the push command
var pushCmd = &cobra.Command{
	Use:   "push [device]",
	Short: "Push a device's active records to the remote",
	Long: `Package the active records of a device and hand them to the remote
(the vault outbox by default). With --all every device is pushed concurrently.`,
	Args: deviceArgs(&pushAll),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		engine, err := openEngine(ctx)
		if err != nil {
			fatal("Failed to open vault", err)
		}

		if pushAll {
			pushed, failed := engine.PushAll(ctx)
			for _, id := range pushed {
				fmt.Printf("%s: pushed\n", id)
			}
			for _, id := range failed {
				fmt.Printf("%s: push failed\n", id)
			}
			if len(failed) > 0 {
				os.Exit(1)
			}
			return
		}

		if !engine.Push(ctx, args[0]) {
			fmt.Fprintf(os.Stderr, "Error: push of %s failed (see log)\n", args[0])
			os.Exit(1)
		}
		fmt.Printf("%s: pushed\n", args[0])
	},
}

// deviceArgs accepts exactly one device, or none when the --all flag is set.
func deviceArgs(all *bool) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if *all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	}
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().BoolVar(&pushAll, "all", false, "Push every device")
}
