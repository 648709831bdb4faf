// Package fs stores device-local knowledge on the filesystem.
//
// A vault is a directory with one sub-directory per device; every record is a
// Markdown file with YAML frontmatter:
//
//	vault/
//	  main-pc/rule-001.md
//	  sub-pc/issue-001.md
//	  .kbsync/outbox/main-pc.json
//
// When versioning is enabled the vault is a git repository and every write is
// committed with a conventional commit message.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/kbsync/internal/fsutil"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/git"
)

// DefaultSystemDir holds kbsync's own files inside a vault.
const DefaultSystemDir = ".kbsync"

// recordPattern matches record files below a device directory.
const recordPattern = "**/*.md"

// Config holds the configuration of a Vault.
type Config struct {
	Path      string
	AutoInit  bool // create the directory (and git repository) when missing
	Versioned bool // commit every write to git
	SystemDir string
	Logger    *slog.Logger

	// GitAuthorName and GitAuthorEmail override the committer identity.
	GitAuthorName  string
	GitAuthorEmail string
}

// Vault reads and writes records under a directory tree.
type Vault struct {
	Path   string
	config Config
	git    *git.Client

	mu            sync.RWMutex
	lastLoad      *time.Time
	loaded        int
	watcherActive bool
}

// NewVault creates a vault. It does no I/O until Initialize or a read/write.
func NewVault(config Config) *Vault {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	client := git.NewClient(config.Path, filepath.Join(config.SystemDir, "vault.lock"), config.Logger)
	client.AuthorName = config.GitAuthorName
	client.AuthorEmail = config.GitAuthorEmail

	return &Vault{
		Path:   config.Path,
		config: config,
		git:    client,
	}
}

// Git returns the client used for versioning.
func (v *Vault) Git() *git.Client {
	return v.git
}

// SystemPath returns the absolute path of the vault's system directory.
func (v *Vault) SystemPath() string {
	return filepath.Join(v.Path, v.config.SystemDir)
}

// Initialize prepares the vault: directory, system directory, git repository
// and .gitignore entry for the system directory.
func (v *Vault) Initialize(ctx context.Context) error {
	info, err := os.Stat(v.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if !v.config.AutoInit {
			return fmt.Errorf("vault path does not exist: %s", v.Path)
		}
		if err := os.MkdirAll(v.Path, 0755); err != nil {
			return fmt.Errorf("failed to create vault directory: %w", err)
		}
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("vault path is not a directory: %s", v.Path)
	}

	if err := os.MkdirAll(v.SystemPath(), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}

	if !v.config.Versioned {
		return nil
	}
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !v.git.IsRepo() {
		if !v.config.AutoInit {
			return fmt.Errorf("path is not a git repository: %s", v.Path)
		}
		if err := v.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	mod, err := v.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if mod && wasNewRepo {
		msg := git.FormatCommitMessage(git.CommitTypeChore, "", fmt.Sprintf("configure %s ignore", v.config.SystemDir), "")
		if _, err := v.git.CommitFiles(ctx, msg, ".gitignore"); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore appends the system directory to .gitignore unless present.
// The outbox is versioned separately, so the whole system directory is ignored.
func (v *Vault) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(v.Path, ".gitignore")
	ignoreEntry := v.config.SystemDir + "/"

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	for _, line := range strings.Split(string(content), "\n") {
		if strings.TrimSpace(line) == ignoreEntry {
			return false, nil
		}
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(ignoreEntry + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// Devices lists the device directories present in the vault, sorted by name.
func (v *Vault) Devices() ([]string, error) {
	entries, err := os.ReadDir(v.Path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !isHidden(e.Name()) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// LoadDevice reads every record file of a device, in path order.
// A missing device directory yields no records.
func (v *Vault) LoadDevice(ctx context.Context, deviceID string) ([]core.Record, error) {
	if err := validateSegment(deviceID); err != nil {
		return nil, err
	}
	dir := filepath.Join(v.Path, deviceID)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, recordPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list records of %s: %w", deviceID, err)
	}
	slices.Sort(matches)

	var records []core.Record
	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hasHiddenSegment(rel) {
			continue
		}
		r, err := v.readRecord(fsys, rel, deviceID)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	v.recordLoad(len(records))
	return records, nil
}

// Load reads the records of the given devices, device by device in the given order.
func (v *Vault) Load(ctx context.Context, devices []string) ([]core.Record, error) {
	var all []core.Record
	for _, d := range devices {
		records, err := v.LoadDevice(ctx, d)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func (v *Vault) readRecord(fsys iofs.FS, rel, deviceID string) (core.Record, error) {
	data, err := iofs.ReadFile(fsys, rel)
	if err != nil {
		return core.Record{}, err
	}
	info, err := iofs.Stat(fsys, rel)
	if err != nil {
		return core.Record{}, err
	}

	id := strings.TrimSuffix(rel, path.Ext(rel))
	r, err := ParseRecord(data, id, deviceID, info.ModTime())
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to parse %s/%s: %w", deviceID, rel, err)
	}
	if v.config.Logger != nil {
		v.config.Logger.Debug("record loaded", "device", deviceID, "id", r.ID, "path", rel)
	}
	return r, nil
}

// RecordPath returns the file path of a record.
func (v *Vault) RecordPath(r core.Record) string {
	return filepath.Join(v.Path, r.OriginDevice, filepath.FromSlash(r.ID)+".md")
}

// Save writes records atomically and, when versioned, commits them in one commit.
func (v *Vault) Save(ctx context.Context, msg string, records ...core.Record) error {
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		if err := ValidateRecord(r); err != nil {
			return err
		}
	}

	files := make([]string, 0, len(records))
	for _, r := range records {
		data, err := FormatRecord(r)
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", r.ID, err)
		}

		fullPath := v.RecordPath(r)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}
		if v.config.Logger != nil {
			v.config.Logger.Debug("writing record to disk", "id", r.ID, "device", r.OriginDevice, "path", fullPath)
		}
		if err := fsutil.WriteFileAtomic(fullPath, data, 0644); err != nil {
			return err
		}

		rel, err := filepath.Rel(v.Path, fullPath)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
	}

	if !v.config.Versioned {
		return nil
	}
	if msg == "" {
		msg = git.FormatCommitMessage(git.CommitTypeDocs, records[0].OriginDevice, fmt.Sprintf("update %d records", len(records)), "")
	}
	if _, err := v.git.CommitFiles(ctx, msg, files...); err != nil {
		return err
	}
	return nil
}

func (v *Vault) recordLoad(n int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := time.Now()
	v.lastLoad = &now
	v.loaded = n
}

func (v *Vault) setWatcherActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watcherActive = active
}

// ValidateRecord checks that a record maps to a file Load would read back:
// a plain device directory and a relative ID with no hidden segments.
func ValidateRecord(r core.Record) error {
	if err := validateSegment(r.OriginDevice); err != nil {
		return err
	}
	return validateID(r.ID)
}

func validateSegment(deviceID string) error {
	if deviceID == "" || deviceID == "." || deviceID == ".." || strings.ContainsAny(deviceID, `/\`) || isHidden(deviceID) {
		return fmt.Errorf("invalid device directory %q", deviceID)
	}
	return nil
}

func validateID(id string) error {
	if id == "" || strings.Contains(id, `\`) || path.IsAbs(id) {
		return fmt.Errorf("invalid record id %q", id)
	}
	if hasHiddenSegment(id) {
		return fmt.Errorf("invalid record id %q", id)
	}
	for _, seg := range strings.Split(id, "/") {
		if seg == "" || seg == ".." {
			return fmt.Errorf("invalid record id %q", id)
		}
	}
	return nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func hasHiddenSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if isHidden(seg) || strings.HasPrefix(seg, fsutil.TempFilePrefix) {
			return true
		}
	}
	return false
}
