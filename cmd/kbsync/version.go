package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of kbsync",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kbsync version %s\n", strings.TrimSpace(kbsync.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
