package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/git"
)

// setupVault creates an initialized, unversioned vault unless options say otherwise.
func setupVault(t *testing.T, opts ...func(*fs.Config)) (*fs.Vault, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vault")
	cfg := fs.Config{
		Path:           path,
		AutoInit:       true,
		GitAuthorName:  "kbsync test",
		GitAuthorEmail: "test@kbsync.local",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	v := fs.NewVault(cfg)
	require.NoError(t, v.Initialize(context.Background()))
	return v, path
}

func TestVault_Initialize(t *testing.T) {
	t.Run("Creates Directory", func(t *testing.T) {
		_, path := setupVault(t)
		info, err := os.Stat(filepath.Join(path, fs.DefaultSystemDir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("Fails Without AutoInit", func(t *testing.T) {
		v := fs.NewVault(fs.Config{Path: filepath.Join(t.TempDir(), "missing")})
		assert.Error(t, v.Initialize(context.Background()))
	})

	t.Run("Versioned Inits Git", func(t *testing.T) {
		if !git.IsInstalled() {
			t.Skip("git not installed")
		}
		v, path := setupVault(t, func(c *fs.Config) { c.Versioned = true })

		_, err := os.Stat(filepath.Join(path, ".git"))
		require.NoError(t, err)

		ignore, err := os.ReadFile(filepath.Join(path, ".gitignore"))
		require.NoError(t, err)
		assert.Contains(t, string(ignore), fs.DefaultSystemDir+"/")

		// Re-initializing does not duplicate the ignore entry.
		require.NoError(t, v.Initialize(context.Background()))
		again, err := os.ReadFile(filepath.Join(path, ".gitignore"))
		require.NoError(t, err)
		assert.Equal(t, string(ignore), string(again))
	})
}

func TestVault_SaveAndLoad(t *testing.T) {
	v, path := setupVault(t)
	ctx := context.Background()

	main1 := sampleRecord()
	main2 := sampleRecord()
	main2.ID = "notes/a-nested"
	main2.Priority = 2
	sub := sampleRecord()
	sub.ID = "issue-001"
	sub.OriginDevice = "sub-pc"

	require.NoError(t, v.Save(ctx, "", main1, main2, sub))
	_, err := os.Stat(filepath.Join(path, "main-pc", "notes", "a-nested.md"))
	require.NoError(t, err)

	devices, err := v.Devices()
	require.NoError(t, err)
	assert.Equal(t, []string{"main-pc", "sub-pc"}, devices)

	records, err := v.Load(ctx, []string{"sub-pc", "main-pc", "ghost"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "issue-001", records[0].ID)
	assert.Equal(t, "sub-pc", records[0].OriginDevice)
	assert.Equal(t, "notes/a-nested", records[1].ID)
	assert.Equal(t, "rule-001", records[2].ID)
	assert.Equal(t, main1.Content, records[2].Content)

	state := v.State().(fs.VaultState)
	assert.Equal(t, path, state.Path)
	assert.NotNil(t, state.LastLoad)
}

func TestVault_LoadSkipsHiddenAndTemp(t *testing.T) {
	v, path := setupVault(t)
	ctx := context.Background()
	require.NoError(t, v.Save(ctx, "", sampleRecord()))

	hidden := filepath.Join(path, "main-pc", ".drafts")
	require.NoError(t, os.MkdirAll(hidden, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(hidden, "secret.md"), []byte("---\ntitle: s\n---\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(path, "main-pc", "readme.txt"), []byte("not a record"), 0644))

	records, err := v.LoadDevice(ctx, "main-pc")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rule-001", records[0].ID)
}

func TestVault_LoadReportsParseErrors(t *testing.T) {
	v, path := setupVault(t)
	dir := filepath.Join(path, "main-pc")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.md"), []byte("---\ntitle: [\n---\n"), 0644))

	_, err := v.LoadDevice(context.Background(), "main-pc")
	assert.ErrorContains(t, err, "broken.md")
}

func TestVault_SaveRejectsUnsafePaths(t *testing.T) {
	v, _ := setupVault(t)
	ctx := context.Background()

	for _, tc := range []struct{ id, device string }{
		{"../escape", "main-pc"},
		{"/abs", "main-pc"},
		{"ok", "../main-pc"},
		{"ok", ".kbsync"},
		{"", "main-pc"},
		{"a/../b", "main-pc"},
		{"notes/.draft", "main-pc"},
	} {
		r := sampleRecord()
		r.ID, r.OriginDevice = tc.id, tc.device
		assert.Errorf(t, fs.ValidateRecord(r), "id=%q device=%q", tc.id, tc.device)
		assert.Errorf(t, v.Save(ctx, "", r), "id=%q device=%q", tc.id, tc.device)
	}

	t.Run("Nothing Written On Partial Failure", func(t *testing.T) {
		good, bad := sampleRecord(), sampleRecord()
		good.ID, bad.ID = "first", "a/../b"
		require.Error(t, v.Save(ctx, "", good, bad))
		_, err := os.Stat(v.RecordPath(good))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestVault_FrontmatterIDDoesNotMoveFile(t *testing.T) {
	v, path := setupVault(t)
	ctx := context.Background()
	dir := filepath.Join(path, "main-pc")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kept.md"), []byte("---\nid: other\ntitle: T\npriority: 2\n---\nbody"), 0644))

	records, err := v.LoadDevice(ctx, "main-pc")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].ID)

	records[0].Priority = 4
	require.NoError(t, v.Save(ctx, "", records[0]))

	reloaded, err := v.LoadDevice(ctx, "main-pc")
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, 4, reloaded[0].Priority)
}

func TestVault_VersionedSaveCommits(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	v, _ := setupVault(t, func(c *fs.Config) { c.Versioned = true })
	ctx := context.Background()

	r := sampleRecord()
	msg := git.FormatCommitMessage(git.CommitTypeDocs, "main-pc", "add rule-001", "")
	require.NoError(t, v.Save(ctx, msg, r))

	subjects, err := v.Git().Log(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, subjects)
	assert.Equal(t, "docs(main-pc): add rule-001", subjects[0])

	// Saving identical content creates no new commit.
	require.NoError(t, v.Save(ctx, msg, r))
	again, err := v.Git().Log(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, subjects, again)

	status, err := v.Git().Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status, "system directory must stay ignored")
}

func TestVault_LearnedRecordsRoundTrip(t *testing.T) {
	v, _ := setupVault(t)
	ctx := context.Background()

	learned := sampleRecord()
	learned.OriginDevice = "sub-pc"
	learned.Tags = append(learned.Tags, core.LearnedTag)
	require.NoError(t, v.Save(ctx, "", learned))

	records, err := v.LoadDevice(ctx, "sub-pc")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].HasTag(core.LearnedTag))
}
