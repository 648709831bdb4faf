package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// VaultState exposes internal state for observability.
type VaultState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	Versioned     bool       `json:"versioned"`
	LastLoaded    int        `json:"last_loaded"`
	LastLoad      *time.Time `json:"last_load,omitempty"`
	WatcherActive bool       `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (v *Vault) State() any {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return VaultState{
		Path:          v.Path,
		SystemDir:     v.config.SystemDir,
		Versioned:     v.config.Versioned,
		LastLoaded:    v.loaded,
		LastLoad:      v.lastLoad,
		WatcherActive: v.watcherActive,
	}
}

// ComponentType implements introspection.Component.
func (v *Vault) ComponentType() string {
	return "vault"
}

// OutboxState exposes internal state for observability.
type OutboxState struct {
	Dir        string `json:"dir"`
	Repository string `json:"repository,omitempty"`
	Versioned  bool   `json:"versioned"`
	Pushes     int    `json:"pushes"`
}

// State implements introspection.Introspectable.
func (o *Outbox) State() any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OutboxState{
		Dir:        o.Dir,
		Repository: o.Repository,
		Versioned:  o.git != nil,
		Pushes:     o.pushes,
	}
}

var _ introspection.Introspectable = (*Vault)(nil)
var _ introspection.Component = (*Vault)(nil)
var _ introspection.Introspectable = (*Outbox)(nil)
var _ introspection.Component = (*Outbox)(nil)
