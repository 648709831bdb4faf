package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/kbsync/pkg/core"
)

// options holds the internal configuration of an Engine.
type options struct {
	logger     *slog.Logger
	remote     core.Remote
	recorder   core.Recorder
	clock      func() time.Time
	configPath string
	systemDir  string
	autoInit   bool
	versioned  *bool
	authorName string
	authorMail string
}

// Option defines a functional option for configuring an Engine.
type Option func(*options)

func defaultOptions() *options {
	return &options{}
}

// WithLogger sets the logger shared by the store and the adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRemote replaces the default push target (the vault outbox).
func WithRemote(remote core.Remote) Option {
	return func(o *options) {
		o.remote = remote
	}
}

// WithRecorder sets the metrics recorder of the store.
func WithRecorder(rec core.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

// WithClock overrides time.Now (useful for testing).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithConfigPath sets the configuration file.
// Defaults to kbsync.json at the vault root.
func WithConfigPath(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithSystemDir sets the hidden directory name. Defaults to ".kbsync".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithAutoInit creates the vault directory (and the git repository when
// versioned) if missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithVersioning enables or disables git commits of the vault and outbox.
// When not set, versioning is on if the vault already is a git repository.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.versioned = &enabled
	}
}

// WithGitAuthor overrides the committer identity.
func WithGitAuthor(name, email string) Option {
	return func(o *options) {
		o.authorName = name
		o.authorMail = email
	}
}
