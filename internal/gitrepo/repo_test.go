package gitrepo_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/gitrepo"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func TestOpenPlainInitializesBareRepo(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()
	workTree := filepath.Join(dir, "work")
	gitDir := filepath.Join(dir, "plain.git")

	r, err := gitrepo.OpenPlain(ctx, workTree, gitDir)
	require.NoError(t, err)
	require.DirExists(t, gitDir)

	branch, err := r.CurrentBranch(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, branch)
}

func TestOpenEncryptedSetsSparseCheckout(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()

	_, err := gitrepo.OpenEncrypted(ctx, dir)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, ".git", "info", "sparse-checkout"))
	require.FileExists(t, filepath.Join(dir, ".git", "info", "attributes"))
}

func TestCommitSkipsEmptyIndex(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()

	r, err := gitrepo.OpenEncrypted(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, r.Config(ctx, "user.email", "test@example.com"))
	require.NoError(t, r.Config(ctx, "user.name", "Test"))

	hash, err := r.Commit(ctx, gitrepo.CommitOpts{Message: "empty"})
	require.NoError(t, err)
	require.Empty(t, hash)
}

func TestCommitAndLog(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()

	r, err := gitrepo.OpenEncrypted(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, r.Config(ctx, "user.email", "test@example.com"))
	require.NoError(t, r.Config(ctx, "user.name", "Test"))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "manifest"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest", "x"), []byte("x"), 0o644))
	require.NoError(t, r.Add(ctx, false, "manifest/x"))

	hash, err := r.Commit(ctx, gitrepo.CommitOpts{Message: "first"})
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	hashes, err := r.Log(ctx, "HEAD")
	require.NoError(t, err)
	require.Equal(t, []string{hash}, hashes)
}

func TestRemoveAndRestoreRemotes(t *testing.T) {
	requireGit(t)
	ctx := context.Background()
	dir := t.TempDir()

	r, err := gitrepo.OpenEncrypted(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, r.RemoteAdd(ctx, "origin", "https://example.invalid/repo.git"))

	snaps, err := r.RemoveAllRemotes(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	remaining, err := r.Remotes(ctx)
	require.NoError(t, err)
	require.Empty(t, remaining)

	require.NoError(t, r.RestoreRemotes(ctx, snaps))
	restored, err := r.Remotes(ctx)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	require.True(t, restored[0].Promisor)
	require.Equal(t, "blob:none", restored[0].Filter)
}
