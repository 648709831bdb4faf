package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/kbsync/internal/fsutil"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/git"
)

// Outbox is a core.Remote that stores the latest push package of every device
// as <dir>/<device>.json. With a git client every push is committed, which
// gives the outbox a history without any network transport.
type Outbox struct {
	Dir        string
	Repository string // remote repository name recorded in commit messages
	git        *git.Client
	logger     *slog.Logger

	mu     sync.Mutex
	pushes int
}

// OutboxOption configures an Outbox.
type OutboxOption func(*Outbox)

// WithOutboxGit commits every package with the given client.
// The client's working directory must be the outbox directory.
func WithOutboxGit(client *git.Client) OutboxOption {
	return func(o *Outbox) {
		o.git = client
	}
}

// WithOutboxLogger sets the logger.
func WithOutboxLogger(logger *slog.Logger) OutboxOption {
	return func(o *Outbox) {
		o.logger = logger
	}
}

// WithOutboxRepository names the remote repository the outbox stands in for.
func WithOutboxRepository(repo string) OutboxOption {
	return func(o *Outbox) {
		o.Repository = repo
	}
}

// NewOutbox creates an outbox writing into dir.
func NewOutbox(dir string, opts ...OutboxOption) *Outbox {
	o := &Outbox{Dir: dir}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize creates the outbox directory and, when versioned, its repository.
func (o *Outbox) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create outbox: %w", err)
	}
	if o.git == nil || o.git.IsRepo() {
		return nil
	}
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}
	if err := o.git.Init(ctx); err != nil {
		return fmt.Errorf("failed to git init outbox: %w", err)
	}
	return nil
}

// Push implements core.Remote.
func (o *Outbox) Push(ctx context.Context, pkg core.PushPackage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateSegment(pkg.DeviceID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode package: %w", err)
	}

	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create outbox: %w", err)
	}
	name := pkg.DeviceID + ".json"
	if err := fsutil.WriteFileAtomic(filepath.Join(o.Dir, name), append(data, '\n'), 0644); err != nil {
		return err
	}

	if o.git != nil {
		body := ""
		if o.Repository != "" {
			body = "Repository: " + o.Repository
		}
		msg := git.FormatCommitMessage(git.CommitTypeFeat, pkg.DeviceID, fmt.Sprintf("push %d records", len(pkg.Records)), body)
		if _, err := o.git.CommitFiles(ctx, msg, name); err != nil {
			return err
		}
	}

	o.mu.Lock()
	o.pushes++
	o.mu.Unlock()

	if o.logger != nil {
		o.logger.Debug("package written to outbox", "device", pkg.DeviceID, "records", len(pkg.Records), "dir", o.Dir)
	}
	return nil
}

// Read returns the last package pushed by a device.
func (o *Outbox) Read(deviceID string) (core.PushPackage, error) {
	var pkg core.PushPackage
	if err := validateSegment(deviceID); err != nil {
		return pkg, err
	}
	data, err := os.ReadFile(filepath.Join(o.Dir, deviceID+".json"))
	if err != nil {
		return pkg, err
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return pkg, fmt.Errorf("invalid package for %s: %w", deviceID, err)
	}
	return pkg, nil
}

// ComponentType implements introspection.Component.
func (o *Outbox) ComponentType() string {
	return "outbox"
}
