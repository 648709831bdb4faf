package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/kbsync"
	syncsource "github.com/aretw0/kbsync/pkg/adapters/lifecycle"
	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/core"
)

var (
	watchInterval    time.Duration
	watchDebounce    time.Duration
	watchMetricsAddr string
	watchFailures    bool
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-sync on an interval and whenever vault records change",
	Long: `Run a sync round at startup, every syncIntervalSeconds (from the configuration)
and after records are edited on disk. Sync events are printed as they happen.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := openEngine(ctx)
		if err != nil {
			fatal("Failed to open vault", err)
		}

		interval := engine.Config.SyncInterval()
		if watchInterval > 0 {
			interval = watchInterval
		}

		if watchMetricsAddr != "" {
			srv := &http.Server{Addr: watchMetricsAddr, Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{})}
			go func() {
				slog.Info("metrics listening", "addr", watchMetricsAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("metrics server error", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		if err := printEvents(ctx, engine); err != nil {
			fatal("Failed to subscribe to sync events", err)
		}

		changes, err := engine.Vault.Watch(ctx, watchDebounce)
		if err != nil {
			fatal("Failed to watch vault", err)
		}

		fmt.Printf("Watching %s (interval %s). Press Ctrl+C to stop.\n", engine.Vault.Path, interval)
		runSync(ctx, engine, "startup")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				fmt.Println("Stopped.")
				return
			case <-ticker.C:
				runSync(ctx, engine, "interval")
			case change, ok := <-changes:
				if !ok {
					return
				}
				if err := engine.Reload(ctx, change.DeviceID); err != nil {
					slog.Warn("failed to reload device", "device", change.DeviceID, "error", err)
					continue
				}
				runSync(ctx, engine, "change "+change.Path)
			}
		}
	},
}

// printEvents bridges the store's sync events through a lifecycle source to stdout.
func printEvents(ctx context.Context, engine *kbsync.Engine) error {
	events, unsubscribe := engine.Store.Subscribe(core.DefaultEventBuffer)

	var opts []syncsource.Option
	if watchFailures {
		opts = append(opts, syncsource.WithFailuresOnly())
	}
	src := syncsource.NewSource(events, opts...)
	if err := src.Start(ctx); err != nil {
		unsubscribe()
		return err
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer unsubscribe()
		for e := range src.Events() {
			fmt.Println("  event:", e.String())
		}
		return nil
	})
	return nil
}

func runSync(ctx context.Context, engine *kbsync.Engine, reason string) {
	slog.Debug("sync triggered", "reason", reason)
	res, err := engine.Sync(ctx)
	if err != nil {
		slog.Error("sync failed", "reason", reason, "error", err)
	}
	fmt.Printf("[%s] sync (%s): %d pushed, %d failed\n", time.Now().Format(time.TimeOnly), reason, len(res.Pushed), len(res.Failed))
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Override syncIntervalSeconds")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", fs.DefaultDebounce, "Quiet period before reacting to file changes")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	watchCmd.Flags().BoolVar(&watchFailures, "failures-only", false, "Print failed sync attempts only")
}
