package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync"
)

var initGit bool

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a kbsync vault",
	Long: `Create the vault directory, its system directory and the configuration file
(with the default devices when none exists). With --git the vault is a git repository
and every write is committed.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		engine, err := openEngine(context.Background(),
			kbsync.WithAutoInit(true),
			kbsync.WithVersioning(initGit),
		)
		if err != nil {
			fatal("Failed to initialize vault", err)
		}

		fmt.Println("Initialized kbsync vault in", engine.Vault.Path)
		fmt.Println("Configuration:", engine.ConfigPath)
		for _, d := range engine.Store.Devices() {
			fmt.Printf("  %s (%s)\n", d.ID, d.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initGit, "git", false, "Version the vault with git")
}
