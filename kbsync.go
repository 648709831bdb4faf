package kbsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/kbsync/internal/platform"
	"github.com/aretw0/kbsync/pkg/core"
)

// --- Types ---

// Engine is a Store backed by a vault on disk.
type Engine = platform.Engine

// EngineState is the introspection snapshot of an Engine.
type EngineState = platform.EngineState

// SyncResult summarises a full sync round.
type SyncResult = platform.SyncResult

// --- Configuration ---

// Option defines a functional option for configuring an Engine.
type Option = platform.Option

// WithLogger sets the logger shared by the store and the adapters.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRemote replaces the default push target (the vault outbox).
func WithRemote(remote core.Remote) Option {
	return platform.WithRemote(remote)
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec core.Recorder) Option {
	return platform.WithRecorder(rec)
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithConfigPath sets the configuration file.
func WithConfigPath(path string) Option {
	return platform.WithConfigPath(path)
}

// WithSystemDir sets the hidden directory name (default ".kbsync").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithAutoInit creates the vault (and its git repository) when missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning enables or disables git commits.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithGitAuthor overrides the committer identity.
func WithGitAuthor(name, email string) Option {
	return platform.WithGitAuthor(name, email)
}

// --- Factory ---

// New opens the vault at path and loads the configured devices and records.
func New(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	return platform.New(ctx, path, opts...)
}

// FindVaultRoot looks upwards from startDir for a vault.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
