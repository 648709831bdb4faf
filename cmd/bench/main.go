package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/kbsync"
	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/config"
	"github.com/aretw0/kbsync/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of records per device")
	devices := flag.Int("devices", 2, "Number of devices")
	overlap := flag.Float64("overlap", 0.25, "Share of record IDs present on every device")
	keep := flag.Bool("keep", false, "Keep the benchmark vault after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "kbsync_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	// Write the vault directly to simulate an existing one.
	cfg := config.Default()
	cfg.Devices = nil
	shared := int(float64(*count) * *overlap)
	fmt.Printf("Generating %d records on %d devices in %s...\n", *count**devices, *devices, benchDir)
	startGen := time.Now()
	now := time.Now().UTC().Truncate(time.Second)
	for d := 0; d < *devices; d++ {
		deviceID := fmt.Sprintf("device-%02d", d)
		cfg.Devices = append(cfg.Devices, config.DeviceEntry{ID: deviceID, DeviceConfig: config.DeviceConfig{Name: deviceID, Role: "bench"}})

		for i := 0; i < *count; i++ {
			id := fmt.Sprintf("%s-rec-%05d", deviceID, i)
			if i < shared {
				id = fmt.Sprintf("shared-%05d", i)
			}
			r := core.Record{
				ID:           id,
				Title:        "Benchmark record " + id,
				Content:      "This is a test record.",
				Category:     core.CategoryDocument,
				OriginDevice: deviceID,
				CreatedAt:    now,
				UpdatedAt:    now.Add(time.Duration(i) * time.Second),
				Tags:         []string{"benchmark"},
				Priority:     1 + i%core.MaxPriority,
				Status:       core.StatusActive,
			}
			data, err := fs.FormatRecord(r)
			if err != nil {
				panic(err)
			}
			path := filepath.Join(benchDir, deviceID, id+".md")
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				panic(err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				panic(err)
			}
		}
	}
	if err := cfg.Save(filepath.Join(benchDir, config.DefaultFile)); err != nil {
		panic(err)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	// Versioning is off to measure parsing and merging rather than git.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	startLoad := time.Now()
	engine, err := kbsync.New(ctx, benchDir, kbsync.WithLogger(logger), kbsync.WithVersioning(false))
	if err != nil {
		panic(err)
	}
	loadDuration := time.Since(startLoad)

	startIntegrate := time.Now()
	integrated := engine.Store.Integrate()
	integrateDuration := time.Since(startIntegrate)

	startSync := time.Now()
	res, err := engine.Sync(ctx)
	if err != nil {
		panic(err)
	}
	syncDuration := time.Since(startSync)

	learned := 0
	for _, n := range res.Learned {
		learned += n
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d records, %d devices):\n", *count**devices, *devices)
	fmt.Printf("  Load:      %v\n", loadDuration)
	fmt.Printf("  Integrate: %v (items: %d)\n", integrateDuration, len(integrated))
	fmt.Printf("  Sync:      %v (learned: %d, failed: %d)\n", syncDuration, learned, len(res.Failed))
	fmt.Printf("--------------------------------------------------\n")
}
