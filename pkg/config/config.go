// Package config loads and saves the kbsync configuration file.
//
// The file is JSON:
//
//	{
//	  "githubRepo": "owner/repo",
//	  "syncIntervalSeconds": 300,
//	  "maxRetries": 3,
//	  "devices": {
//	    "main-pc": {"deviceName": "...", "platform": "...", "account": "...", "role": "main"}
//	  }
//	}
//
// Device order is significant (it is the registration order used when learning)
// and is preserved from the file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/kbsync/internal/fsutil"
	"github.com/aretw0/kbsync/pkg/core"
)

// DefaultFile is the configuration file name used when none is given.
const DefaultFile = "kbsync.json"

// Defaults.
const (
	DefaultRepository   = "0nyx-lab/aidd-integration-system"
	DefaultSyncInterval = 300
	DefaultMaxRetries   = 3
)

// Config is the content of the configuration file.
type Config struct {
	GithubRepo          string  `json:"githubRepo"`
	SyncIntervalSeconds int     `json:"syncIntervalSeconds"`
	MaxRetries          int     `json:"maxRetries"` // parsed but never consulted
	Devices             Devices `json:"devices"`
}

// DeviceConfig describes a device in the configuration file.
type DeviceConfig struct {
	Name     string `json:"deviceName"`
	Platform string `json:"platform"`
	Account  string `json:"account"`
	Role     string `json:"role"`
}

// Default returns the configuration written when no file exists.
func Default() *Config {
	return &Config{
		GithubRepo:          DefaultRepository,
		SyncIntervalSeconds: DefaultSyncInterval,
		MaxRetries:          DefaultMaxRetries,
		Devices: Devices{
			{ID: "main-pc", DeviceConfig: DeviceConfig{Name: "Main PC (Windows)", Platform: "Windows", Account: "0nyx-lab", Role: "main"}},
			{ID: "sub-pc", DeviceConfig: DeviceConfig{Name: "Sub PC (Mac)", Platform: "macOS", Account: "sub-account", Role: "sub"}},
		},
	}
}

// Load reads the configuration at path. When the file does not exist the
// defaults are written there and returned.
func Load(path string, logger *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("configuration not found, defaults written", "path", path)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if cfg.SyncIntervalSeconds <= 0 {
		cfg.SyncIntervalSeconds = DefaultSyncInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if logger != nil {
		logger.Debug("configuration loaded", "path", path, "devices", len(cfg.Devices))
	}
	return cfg, nil
}

// Save writes the configuration atomically, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data, 0644)
}

// Validate checks that every device has a unique, non-empty ID.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		if d.ID == "" {
			return errors.New("device with empty id")
		}
		if seen[d.ID] {
			return fmt.Errorf("duplicate device %q", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// SyncInterval returns the configured interval between automatic syncs.
func (c *Config) SyncInterval() time.Duration {
	if c.SyncIntervalSeconds <= 0 {
		return DefaultSyncInterval * time.Second
	}
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// CoreDevices converts the configured devices into domain devices, in file order.
func (c *Config) CoreDevices() []core.Device {
	out := make([]core.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		out = append(out, core.Device{
			ID:       d.ID,
			Name:     d.Name,
			Platform: d.Platform,
			Account:  d.Account,
			Role:     d.Role,
		})
	}
	return out
}
