package platform_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/kbsync/internal/platform"
	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/adapters/memory"
	"github.com/aretw0/kbsync/pkg/config"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/git"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func setupEngine(t *testing.T, dir string, opts ...platform.Option) *platform.Engine {
	t.Helper()
	base := []platform.Option{
		platform.WithAutoInit(true),
		platform.WithVersioning(false),
		platform.WithClock(func() time.Time { return t0.Add(time.Hour) }),
	}
	e, err := platform.New(context.Background(), dir, append(base, opts...)...)
	require.NoError(t, err)
	return e
}

func record(id, device string, priority int) core.Record {
	return core.Record{
		ID:           id,
		Title:        "title " + id,
		Content:      "content " + id,
		Category:     core.CategoryRule,
		OriginDevice: device,
		CreatedAt:    t0,
		UpdatedAt:    t0,
		Tags:         []string{"seed"},
		Priority:     priority,
		Status:       core.StatusActive,
	}
}

func TestNew_WritesDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vault")
	e := setupEngine(t, dir)

	_, err := os.Stat(filepath.Join(dir, config.DefaultFile))
	require.NoError(t, err)

	var ids []string
	for _, d := range e.Store.Devices() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"main-pc", "sub-pc"}, ids)
	require.NotNil(t, e.Outbox)
	assert.Equal(t, config.DefaultRepository, e.Outbox.Repository)

	state := e.State().(platform.EngineState)
	assert.Equal(t, "outbox", state.Store.(core.StoreState).RemoteType)
}

func TestNew_MissingVault(t *testing.T) {
	_, err := platform.New(context.Background(), filepath.Join(t.TempDir(), "missing"), platform.WithVersioning(false))
	assert.Error(t, err)
}

func TestEngine_AddRecordPersists(t *testing.T) {
	dir := t.TempDir()
	e := setupEngine(t, dir)
	ctx := context.Background()

	require.NoError(t, e.AddRecord(ctx, record("rule-001", "main-pc", 5)))
	_, err := os.Stat(filepath.Join(dir, "main-pc", "rule-001.md"))
	require.NoError(t, err)

	assert.ErrorIs(t, e.AddRecord(ctx, record("x", "ghost", 3)), core.ErrUnknownDevice)

	reopened := setupEngine(t, dir)
	records := reopened.Store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "rule-001", records[0].ID)
	assert.Equal(t, 5, records[0].Priority)
}

func TestEngine_AddRecordRejectsUnloadablePaths(t *testing.T) {
	e := setupEngine(t, t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"a/../b", "notes/.hidden", "/abs"} {
		err := e.AddRecord(ctx, record(id, "main-pc", 5))
		assert.ErrorIsf(t, err, core.ErrInvalidRecord, "id=%q", id)
	}
	assert.Empty(t, e.Store.Records())

	res, err := e.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"main-pc": 0, "sub-pc": 0}, res.Learned)
}

func TestEngine_AddRecordRestoresOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	e := setupEngine(t, dir)
	ctx := context.Background()

	t.Run("New Record", func(t *testing.T) {
		// a plain file where the device directory should be
		blocker := filepath.Join(dir, "sub-pc")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
		t.Cleanup(func() { _ = os.Remove(blocker) })

		assert.Error(t, e.AddRecord(ctx, record("r2", "sub-pc", 4)))
		assert.Empty(t, e.Store.DeviceRecords("sub-pc"))
	})

	t.Run("Existing Record", func(t *testing.T) {
		require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 1)))
		path := filepath.Join(dir, "main-pc", "r1.md")
		require.NoError(t, os.Remove(path))
		require.NoError(t, os.Mkdir(path, 0755))

		assert.Error(t, e.AddRecord(ctx, record("r1", "main-pc", 5)))
		records := e.Store.DeviceRecords("main-pc")
		require.Len(t, records, 1)
		assert.Equal(t, 1, records[0].Priority)
	})
}

func TestEngine_AddRecordReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	e := setupEngine(t, dir)
	ctx := context.Background()

	require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 1)))
	require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 5)))

	require.Len(t, e.Store.Records(), 1)
	assert.Equal(t, 5, e.Store.Integrate()[0].Priority)

	reopened := setupEngine(t, dir)
	require.Len(t, reopened.Store.Records(), 1)
	assert.Equal(t, 5, reopened.Store.Records()[0].Priority)
}

func TestEngine_SyncContinuesPastWriteFailure(t *testing.T) {
	dir := t.TempDir()
	e := setupEngine(t, dir)
	ctx := context.Background()

	require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 5)))
	// held in memory only: the id cannot be written below main-pc
	require.NoError(t, e.Store.AddRecord(record("a/../b", "sub-pc", 4)))

	res, err := e.Sync(ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to persist learned records of main-pc")
	assert.Equal(t, []string{"main-pc"}, res.Failed)
	assert.Equal(t, map[string]int{"sub-pc": 1}, res.Learned)

	mainRecords := e.Store.DeviceRecords("main-pc")
	require.Len(t, mainRecords, 1, "learned records are dropped when they cannot be written")
	assert.Equal(t, "r1", mainRecords[0].ID)

	_, err = os.Stat(filepath.Join(dir, "sub-pc", "r1.md"))
	assert.NoError(t, err, "later devices still pull")
}

func TestEngine_Sync(t *testing.T) {
	dir := t.TempDir()
	e := setupEngine(t, dir)
	ctx := context.Background()

	require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 5)))
	require.NoError(t, e.AddRecord(ctx, record("r2", "sub-pc", 4)))

	res, err := e.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, []string{"main-pc", "sub-pc"}, res.Pushed)
	assert.Equal(t, map[string]int{"main-pc": 1, "sub-pc": 1}, res.Learned)

	// learned copies live in the learner's directory
	learned, err := os.ReadFile(filepath.Join(dir, "main-pc", "r2.md"))
	require.NoError(t, err)
	assert.Contains(t, string(learned), "- learned")

	pkg, err := e.Outbox.Read("main-pc")
	require.NoError(t, err)
	require.Len(t, pkg.Records, 1)
	assert.Equal(t, "r1", pkg.Records[0].ID)

	integrated := e.Store.Integrate()
	require.Len(t, integrated, 2)
	assert.Equal(t, "r1", integrated[0].ID)

	t.Run("Second Round Learns Nothing", func(t *testing.T) {
		res, err := e.Sync(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"main-pc": 0, "sub-pc": 0}, res.Learned)
		assert.Len(t, e.Store.Records(), 4)
	})

	t.Run("Reopen Sees Learned Records", func(t *testing.T) {
		reopened := setupEngine(t, dir)
		assert.Len(t, reopened.Store.Records(), 4)
		assert.Len(t, reopened.Store.Integrate(), 2)
	})
}

func TestEngine_SyncWithFailingRemote(t *testing.T) {
	remote := memory.NewRemote()
	remote.FailWith(errors.New("network unreachable"))
	e := setupEngine(t, t.TempDir(), platform.WithRemote(remote))
	ctx := context.Background()

	require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 5)))

	res, err := e.Sync(ctx)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Empty(t, res.Pushed)
	assert.Equal(t, []string{"main-pc", "sub-pc"}, res.Failed)
	assert.Equal(t, 1, res.Learned["sub-pc"], "pull does not depend on the remote")
	assert.Nil(t, e.Outbox)

	status, ok := e.Store.DeviceStatus("main-pc")
	require.True(t, ok)
	assert.Equal(t, core.DeviceActive, status.State, "latest entry is the successful pull")
}

func TestEngine_Reload(t *testing.T) {
	dir := t.TempDir()
	e := setupEngine(t, dir)
	ctx := context.Background()

	require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 5)))
	require.NoError(t, e.AddRecord(ctx, record("r2", "sub-pc", 4)))

	edited := record("r1", "main-pc", 1)
	data, err := fs.FormatRecord(edited)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main-pc", "r1.md"), data, 0644))

	require.NoError(t, e.Reload(ctx, "main-pc"))
	integrated := e.Store.Integrate()
	require.Len(t, integrated, 2)
	assert.Equal(t, "r2", integrated[0].ID, "edited priority is picked up")

	assert.Error(t, e.Reload(ctx, "../escape"))
}

func TestEngine_Versioned(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	dir := filepath.Join(t.TempDir(), "vault")
	e := setupEngine(t, dir,
		platform.WithVersioning(true),
		platform.WithGitAuthor("kbsync test", "test@kbsync.local"),
	)
	ctx := context.Background()

	require.NoError(t, e.AddRecord(ctx, record("r1", "main-pc", 5)))
	_, err := e.Sync(ctx)
	require.NoError(t, err)

	subjects, err := e.Vault.Git().Log(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, subjects, "docs(main-pc): add r1")
	assert.Contains(t, subjects, "feat(sub-pc): learn 1 records")

	outboxGit := git.NewClient(e.Outbox.Dir, git.DefaultLockName, nil)
	outboxSubjects, err := outboxGit.Log(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(outboxSubjects, "\n"), "feat(main-pc): push 1 records")
}
