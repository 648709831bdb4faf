package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups bursts of filesystem events (editors often write twice).
const DefaultDebounce = 100 * time.Millisecond

// Change reports that records of a device were created, modified or removed.
type Change struct {
	DeviceID string
	Path     string // last changed file, relative to the vault
}

// Watch observes the vault and emits one Change per device after a burst of
// record file events settles. The channel is closed when ctx is done.
func (v *Vault) Watch(ctx context.Context, debounce time.Duration) (<-chan Change, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := v.addRecursive(watcher, v.Path); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	out := make(chan Change)
	v.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		defer v.setWatcherActive(false)
		defer watcher.Close()
		return v.watchLoop(ctx, watcher, debounce, out)
	}, lifecycle.WithErrorHandler(func(err error) {
		if v.config.Logger != nil {
			v.config.Logger.Error("vault watcher stopped", "error", err)
		}
	}))

	return out, nil
}

func (v *Vault) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration, out chan<- Change) error {
	pending := make(map[string]string)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			change, ok := v.classify(watcher, event)
			if !ok {
				continue
			}
			pending[change.DeviceID] = change.Path
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if v.config.Logger != nil {
				v.config.Logger.Error("fsnotify error", "error", err)
			}

		case <-timer.C:
			devices := make([]string, 0, len(pending))
			for d := range pending {
				devices = append(devices, d)
			}
			slices.Sort(devices)
			for _, d := range devices {
				select {
				case out <- Change{DeviceID: d, Path: pending[d]}:
				case <-ctx.Done():
					return nil
				}
			}
			clear(pending)
		}
	}
}

// classify maps a filesystem event to a device change. New directories are
// added to the watcher so nested records are observed too.
func (v *Vault) classify(watcher *fsnotify.Watcher, event fsnotify.Event) (Change, bool) {
	rel, err := filepath.Rel(v.Path, event.Name)
	if err != nil {
		return Change{}, false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") || hasHiddenSegment(rel) {
		return Change{}, false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := v.addRecursive(watcher, event.Name); err != nil && v.config.Logger != nil {
				v.config.Logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return Change{}, false
		}
	}

	if ok, _ := doublestar.Match("*/"+recordPattern, rel); !ok {
		return Change{}, false
	}

	if v.config.Logger != nil {
		v.config.Logger.Debug("record file changed", "path", rel, "op", event.Op.String())
	}
	device, _, _ := strings.Cut(rel, "/")
	return Change{DeviceID: device, Path: rel}, true
}

func (v *Vault) addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != v.Path && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
