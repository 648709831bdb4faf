package fs_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/kbsync/pkg/adapters/fs"
	"github.com/aretw0/kbsync/pkg/core"
	"github.com/aretw0/kbsync/pkg/git"
)

func samplePackage() core.PushPackage {
	return core.PushPackage{
		ID:         "pkg-1",
		DeviceID:   "main-pc",
		DeviceName: "Main PC (Windows)",
		Platform:   "Windows",
		Account:    "0nyx-lab",
		Records:    []core.Record{sampleRecord()},
		Timestamp:  created,
	}
}

func TestOutbox_PushAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outbox")
	o := fs.NewOutbox(dir, fs.WithOutboxRepository("acme/kb"))
	ctx := context.Background()
	require.NoError(t, o.Initialize(ctx))

	require.NoError(t, o.Push(ctx, samplePackage()))

	got, err := o.Read("main-pc")
	require.NoError(t, err)
	assert.Equal(t, "pkg-1", got.ID)
	assert.Equal(t, "0nyx-lab", got.Account)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "rule-001", got.Records[0].ID)
	assert.True(t, created.Equal(got.Timestamp))

	state := o.State().(fs.OutboxState)
	assert.Equal(t, 1, state.Pushes)
	assert.False(t, state.Versioned)
	assert.Equal(t, "outbox", o.ComponentType())
}

func TestOutbox_Rejects(t *testing.T) {
	o := fs.NewOutbox(t.TempDir())

	pkg := samplePackage()
	pkg.DeviceID = "../escape"
	assert.Error(t, o.Push(context.Background(), pkg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Push(ctx, samplePackage()), context.Canceled)

	_, err := o.Read("never-pushed")
	assert.Error(t, err)
}

func TestOutbox_Versioned(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	dir := filepath.Join(t.TempDir(), "outbox")
	client := git.NewClient(dir, "", nil)
	client.AuthorName = "kbsync test"
	client.AuthorEmail = "test@kbsync.local"

	o := fs.NewOutbox(dir, fs.WithOutboxGit(client), fs.WithOutboxRepository("acme/kb"))
	ctx := context.Background()
	require.NoError(t, o.Initialize(ctx))
	require.NoError(t, o.Push(ctx, samplePackage()))

	subjects, err := client.Log(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"feat(main-pc): push 1 records"}, subjects)
}

func TestOutbox_IsRemote(t *testing.T) {
	var _ core.Remote = fs.NewOutbox(t.TempDir())
}
