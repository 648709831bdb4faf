package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync"
	"github.com/aretw0/kbsync/internal/platform"
	"github.com/aretw0/kbsync/pkg/metrics"
)

var (
	verbose    bool
	configPath string
	vaultPath  string

	// registry collects the metrics of this process; report --metrics and
	// watch --metrics-addr expose it.
	registry = prometheus.NewRegistry()
	recorder *metrics.Metrics
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kbsync",
	Short: "Deduplicate, merge and rank knowledge records across devices",
	Long: `kbsync keeps the knowledge of several devices in one vault.
Every device pushes its active records and pulls what its peers know;
the integrated view is deduplicated by ID and ranked by priority and recency.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default <vault>/kbsync.json)")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (default: nearest vault above the working directory)")
}

// resolveVault returns --vault, or the nearest vault root, or the working directory.
func resolveVault() (string, error) {
	if vaultPath != "" {
		return vaultPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := kbsync.FindVaultRoot(cwd)
	if errors.Is(err, platform.ErrRootNotFound) {
		return cwd, nil
	}
	return root, err
}

// openEngine opens the vault with the CLI's logger, config path and metrics.
func openEngine(ctx context.Context, opts ...kbsync.Option) (*kbsync.Engine, error) {
	path, err := resolveVault()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault: %w", err)
	}

	if recorder == nil {
		recorder, err = metrics.New(registry)
		if err != nil {
			return nil, err
		}
	}

	base := []kbsync.Option{
		kbsync.WithLogger(slog.Default()),
		kbsync.WithRecorder(recorder),
	}
	if configPath != "" {
		base = append(base, kbsync.WithConfigPath(configPath))
	}
	return kbsync.New(ctx, path, append(base, opts...)...)
}
