package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/config"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/git"
)

// OutboxDir is the outbox location inside the vault system directory.
const OutboxDir = "outbox"

// New opens the vault at path and builds an Engine: the configuration is
// loaded (or written with defaults), the configured devices are registered in
// file order and their records are read from the vault in that same order.
//
//	engine, err := platform.New("./vault", platform.WithAutoInit(true))
func New(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}

	versioned := detectVersioning(absPath, o)

	vault := fs.NewVault(fs.Config{
		Path:           absPath,
		AutoInit:       o.autoInit,
		Versioned:      versioned,
		SystemDir:      o.systemDir,
		Logger:         o.logger,
		GitAuthorName:  o.authorName,
		GitAuthorEmail: o.authorMail,
	})
	if err := vault.Initialize(ctx); err != nil {
		return nil, err
	}

	configPath := o.configPath
	if configPath == "" {
		configPath = filepath.Join(absPath, config.DefaultFile)
	}
	cfg, err := config.Load(configPath, o.logger)
	if err != nil {
		return nil, err
	}

	var outbox *fs.Outbox
	remote := o.remote
	if remote == nil {
		outbox, err = newOutbox(ctx, vault, cfg, versioned, o)
		if err != nil {
			return nil, err
		}
		remote = outbox
	}

	storeOpts := []core.StoreOption{
		core.WithLogger(o.logger),
		core.WithRemote(remote),
		core.WithRecorder(o.recorder),
		core.WithClock(o.clock),
	}
	store := core.NewStore(storeOpts...)

	e := &Engine{
		Config:     cfg,
		ConfigPath: configPath,
		Store:      store,
		Vault:      vault,
		Outbox:     outbox,
		logger:     o.logger,
	}
	if err := e.load(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// detectVersioning honours an explicit choice, otherwise follows the vault:
// an existing .git means versioned, and a fresh vault created with AutoInit
// is versioned when git is available.
func detectVersioning(path string, o *options) bool {
	if o.versioned != nil {
		return *o.versioned
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return true
	}
	if !o.autoInit || !git.IsInstalled() {
		return false
	}
	systemDir := o.systemDir
	if systemDir == "" {
		systemDir = fs.DefaultSystemDir
	}
	// An existing system directory without .git is an unversioned vault.
	_, err := os.Stat(filepath.Join(path, systemDir))
	return os.IsNotExist(err)
}

func newOutbox(ctx context.Context, vault *fs.Vault, cfg *config.Config, versioned bool, o *options) (*fs.Outbox, error) {
	dir := filepath.Join(vault.SystemPath(), OutboxDir)
	outboxOpts := []fs.OutboxOption{
		fs.WithOutboxLogger(o.logger),
		fs.WithOutboxRepository(cfg.GithubRepo),
	}
	if versioned {
		client := git.NewClient(dir, git.DefaultLockName, o.logger)
		client.AuthorName = o.authorName
		client.AuthorEmail = o.authorMail
		outboxOpts = append(outboxOpts, fs.WithOutboxGit(client))
	}

	outbox := fs.NewOutbox(dir, outboxOpts...)
	if err := outbox.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize outbox: %w", err)
	}
	return outbox, nil
}
