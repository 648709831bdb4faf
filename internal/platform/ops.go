package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/config"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/git"
)

// Engine is a Store backed by a vault on disk. Records added or learned
// through the Engine are written to the owning device's directory.
type Engine struct {
	Config     *config.Config
	ConfigPath string
	Store      *core.Store
	Vault      *fs.Vault
	Outbox     *fs.Outbox // nil when a custom remote was injected

	logger *slog.Logger
	mu     sync.Mutex // guards writes that must reach both the store and the vault
}

// SyncResult summarises a full sync round.
type SyncResult struct {
	Pushed  []string       // devices whose push succeeded, registration order
	Failed  []string       // devices whose push or pull failed
	Learned map[string]int // records learned per device
}

// OK reports whether every push and pull succeeded.
func (r SyncResult) OK() bool {
	return len(r.Failed) == 0
}

// load registers the configured devices and reads their records.
func (e *Engine) load(ctx context.Context) error {
	deviceIDs := make([]string, 0, len(e.Config.Devices))
	for _, d := range e.Config.CoreDevices() {
		if err := e.Store.RegisterDevice(d); err != nil {
			return err
		}
		deviceIDs = append(deviceIDs, d.ID)
	}

	if dirs, err := e.Vault.Devices(); err == nil && e.logger != nil {
		for _, dir := range dirs {
			if _, ok := e.Store.Device(dir); !ok {
				e.logger.Warn("vault directory is not a configured device, skipped", "dir", dir)
			}
		}
	}

	records, err := e.Vault.Load(ctx, deviceIDs)
	if err != nil {
		return err
	}
	for _, r := range records {
		if err := e.Store.AddRecord(r); err != nil {
			return fmt.Errorf("failed to load %s/%s: %w", r.OriginDevice, r.ID, err)
		}
	}

	if e.logger != nil {
		e.logger.Info("vault loaded", "path", e.Vault.Path, "devices", len(deviceIDs), "records", len(records))
	}
	return nil
}

// AddRecord stores a record and writes it to the vault. When the write fails
// the device's records are restored to what they were before the call.
func (e *Engine) AddRecord(ctx context.Context, r core.Record) error {
	if err := fs.ValidateRecord(r); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidRecord, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.Store.DeviceRecords(r.OriginDevice)
	if err := e.Store.AddRecord(r); err != nil {
		return err
	}
	msg := git.FormatCommitMessage(git.CommitTypeDocs, r.OriginDevice, fmt.Sprintf("add %s", r.ID), "")
	if err := e.Vault.Save(ctx, msg, r); err != nil {
		e.restore(r.OriginDevice, previous)
		return err
	}
	return nil
}

func (e *Engine) restore(deviceID string, records []core.Record) {
	if err := e.Store.ReplaceDeviceRecords(deviceID, records); err != nil && e.logger != nil {
		e.logger.Error("failed to restore device records", "device", deviceID, "error", err)
	}
}

// Reload re-reads a device's records from the vault, picking up edits made
// outside kbsync.
func (e *Engine) Reload(ctx context.Context, deviceID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.Vault.LoadDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	return e.Store.ReplaceDeviceRecords(deviceID, records)
}

// Push pushes a device's active records to the remote.
func (e *Engine) Push(ctx context.Context, deviceID string) bool {
	return e.Store.Push(ctx, deviceID)
}

// Pull learns peer records into a device and persists what was learned.
// The bool mirrors Store.Pull; the error reports a failed write to the vault,
// in which case the learned records are dropped from the store again.
func (e *Engine) Pull(ctx context.Context, deviceID string) (int, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	previous := e.Store.DeviceRecords(deviceID)
	if !e.Store.Pull(ctx, deviceID) {
		return 0, false, nil
	}
	learned := e.Store.DeviceRecords(deviceID)[len(previous):]
	if len(learned) == 0 {
		return 0, true, nil
	}

	msg := git.FormatCommitMessage(git.CommitTypeFeat, deviceID, fmt.Sprintf("learn %d records", len(learned)), "")
	if err := e.Vault.Save(ctx, msg, learned...); err != nil {
		e.restore(deviceID, previous)
		return 0, false, fmt.Errorf("failed to persist learned records of %s: %w", deviceID, err)
	}
	return len(learned), true, nil
}

// PushAll pushes every device concurrently and returns the IDs of those that
// failed, in registration order.
func (e *Engine) PushAll(ctx context.Context) (pushed, failed []string) {
	devices := e.Store.Devices()
	ok := make([]bool, len(devices))

	var g errgroup.Group
	for i, d := range devices {
		g.Go(func() error {
			ok[i] = e.Store.Push(ctx, d.ID)
			return nil
		})
	}
	_ = g.Wait()

	for i, d := range devices {
		if ok[i] {
			pushed = append(pushed, d.ID)
		} else {
			failed = append(failed, d.ID)
		}
	}
	return pushed, failed
}

// Sync pushes every device concurrently, then pulls every device in
// registration order so later devices also learn what earlier ones learned.
// A device whose learned records cannot be written counts as failed; the
// round goes on and the write errors are returned joined.
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	res := SyncResult{Learned: make(map[string]int)}
	res.Pushed, res.Failed = e.PushAll(ctx)

	var errs []error
	for _, d := range e.Store.Devices() {
		n, ok, err := e.Pull(ctx, d.ID)
		if err != nil {
			errs = append(errs, err)
		}
		if !ok {
			if !slices.Contains(res.Failed, d.ID) {
				res.Failed = append(res.Failed, d.ID)
			}
			continue
		}
		res.Learned[d.ID] = n
	}

	if e.logger != nil {
		e.logger.Info("sync round finished", "pushed", len(res.Pushed), "failed", len(res.Failed))
	}
	return res, errors.Join(errs...)
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	state := EngineState{
		ConfigPath: e.ConfigPath,
		Repository: e.Config.GithubRepo,
		Store:      e.Store.State(),
		Vault:      e.Vault.State(),
	}
	if e.Outbox != nil {
		state.Outbox = e.Outbox.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

// EngineState aggregates the state of the engine's components.
type EngineState struct {
	ConfigPath string `json:"config_path"`
	Repository string `json:"repository"`
	Store      any    `json:"store"`
	Vault      any    `json:"vault"`
	Outbox     any    `json:"outbox,omitempty"`
}
