package pipeline_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/config"
	"github.com/TheMichaelB/myba/internal/gitrepo"
	"github.com/TheMichaelB/myba/internal/pathderive"
	"github.com/TheMichaelB/myba/internal/pipeline"
	"github.com/TheMichaelB/myba/internal/workerpool"
)

func TestRestoreSequentialRoundTrip(t *testing.T) {
	pc, ctx := newTestContext(t)

	commitToPlain(t, pc, ctx, "foo.txt", "hello world", "add foo")
	mirrorOrFail(t, pc, ctx)

	commitToPlain(t, pc, ctx, "bar.txt", "second file", "add bar")
	mirrorOrFail(t, pc, ctx)

	pc2 := freshRestoreContext(t, pc)
	require.NoError(t, pc2.Restore(ctx, false))

	data, err := os.ReadFile(filepath.Join(pc2.Plain.Dir, "foo.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))

	data, err = os.ReadFile(filepath.Join(pc2.Plain.Dir, "bar.txt"))
	require.NoError(t, err)
	require.Equal(t, "second file", string(data))

	hashes, err := pc2.Plain.Log(ctx, "HEAD")
	require.NoError(t, err)
	require.Len(t, hashes, 2)
}

func TestRestoreSquashUnionsCurrentFiles(t *testing.T) {
	pc, ctx := newTestContext(t)

	commitToPlain(t, pc, ctx, "foo.txt", "hello world", "add foo")
	mirrorOrFail(t, pc, ctx)
	commitToPlain(t, pc, ctx, "bar.txt", "second file", "add bar")
	mirrorOrFail(t, pc, ctx)

	pc2 := freshRestoreContext(t, pc)
	require.NoError(t, pc2.Restore(ctx, true))

	data, err := os.ReadFile(filepath.Join(pc2.Plain.Dir, "foo.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))

	hashes, err := pc2.Plain.Log(ctx, "HEAD")
	require.NoError(t, err)
	require.Len(t, hashes, 1)
}

func TestRestoreRefusesNonEmptyPlainWithoutYesOverwrite(t *testing.T) {
	pc, ctx := newTestContext(t)
	commitToPlain(t, pc, ctx, "foo.txt", "hello world", "add foo")
	mirrorOrFail(t, pc, ctx)

	err := pc.Restore(ctx, false)
	require.Error(t, err)
}

func mirrorOrFail(t *testing.T, pc *pipeline.Context, ctx context.Context) {
	t.Helper()
	var out, errOut bytes.Buffer
	_, err := pc.Commit(ctx, &out, &errOut)
	require.NoError(t, err)
}

// freshRestoreContext builds a second pipeline.Context sharing pc's
// encrypted repo but with a brand-new, empty plain repo, the shape
// Restore is meant to reconstruct P into.
func freshRestoreContext(t *testing.T, pc *pipeline.Context) *pipeline.Context {
	t.Helper()
	ctx := context.Background()
	root := t.TempDir()
	workTree := filepath.Join(root, "work2")
	gitDir := filepath.Join(root, "plain2.git")

	plain, err := gitrepo.OpenPlain(ctx, workTree, gitDir)
	require.NoError(t, err)
	require.NoError(t, plain.Config(ctx, "user.email", "test@example.com"))
	require.NoError(t, plain.Config(ctx, "user.name", "Test"))

	cfg := config.DefaultConfig()
	cfg.WorkTree = workTree
	cfg.PlainRepo = filepath.Join(root, "plain2-state")
	cfg.LFSThreshold = 1 << 30

	return &pipeline.Context{
		Cfg:    cfg,
		Plain:  plain,
		Enc:    pc.Enc,
		Cipher: fakeCipher{},
		Paths:  pathderive.NewCache("secret"),
		Pool:   workerpool.New(2),
		State:  newMemoryStore(),
	}
}
