package pipeline_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/cipher"
	"github.com/TheMichaelB/myba/internal/cleanup"
	"github.com/TheMichaelB/myba/internal/config"
	"github.com/TheMichaelB/myba/internal/gitrepo"
	"github.com/TheMichaelB/myba/internal/pathderive"
	"github.com/TheMichaelB/myba/internal/pipeline"
	"github.com/TheMichaelB/myba/internal/state"
	"github.com/TheMichaelB/myba/internal/workerpool"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// fakeCipher is an identity stand-in for the real openssl/gpg-backed
// Provider, so pipeline tests exercise the commit state machine without
// shelling out to a real cipher binary.
type fakeCipher struct{}

func (fakeCipher) Mode() string { return "fake" }

func (fakeCipher) Encrypt(ctx context.Context, pepper string, plaintext []byte) ([]byte, error) {
	out := append([]byte(pepper), '|')
	return append(out, plaintext...), nil
}

func (fakeCipher) Decrypt(ctx context.Context, pepper string, ciphertext []byte) ([]byte, error) {
	idx := bytes.IndexByte(ciphertext, '|')
	return ciphertext[idx+1:], nil
}

var _ cipher.Provider = fakeCipher{}

func newTestContext(t *testing.T) (*pipeline.Context, context.Context) {
	t.Helper()
	requireGit(t)
	ctx := context.Background()

	root := t.TempDir()
	workTree := filepath.Join(root, "work")
	plainGitDir := filepath.Join(root, "plain.git")
	encDir := filepath.Join(root, "enc")

	plain, err := gitrepo.OpenPlain(ctx, workTree, plainGitDir)
	require.NoError(t, err)
	require.NoError(t, plain.Config(ctx, "user.email", "test@example.com"))
	require.NoError(t, plain.Config(ctx, "user.name", "Test"))

	enc, err := gitrepo.OpenEncrypted(ctx, encDir)
	require.NoError(t, err)
	require.NoError(t, enc.Config(ctx, "user.email", "test@example.com"))
	require.NoError(t, enc.Config(ctx, "user.name", "Test"))

	cfg := config.DefaultConfig()
	cfg.WorkTree = workTree
	cfg.PlainRepo = filepath.Join(root, "plain-state")
	cfg.LFSThreshold = 1 << 30

	pc := &pipeline.Context{
		Cfg:     cfg,
		Plain:   plain,
		Enc:     enc,
		Cipher:  fakeCipher{},
		Paths:   pathderive.NewCache("secret"),
		Pool:    workerpool.New(2),
		Cleanup: cleanup.New(),
		State:   newMemoryStore(),
	}
	return pc, ctx
}

// memoryStore is a minimal in-memory state.Store for pipeline tests.
type memoryStore struct {
	records map[string]state.Record
	latest  string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]state.Record)}
}

func (m *memoryStore) Get(hash string) (*state.Record, error) {
	if r, ok := m.records[hash]; ok {
		return &r, nil
	}
	return nil, state.ErrNotFound
}

func (m *memoryStore) Put(rec state.Record) error {
	m.records[rec.PlainCommitHash] = rec
	m.latest = rec.PlainCommitHash
	return nil
}

func (m *memoryStore) Latest() (*state.Record, error) {
	if m.latest == "" {
		return nil, state.ErrNotFound
	}
	r := m.records[m.latest]
	return &r, nil
}

func (m *memoryStore) All() ([]state.Record, error) {
	var out []state.Record
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryStore) Reset() error {
	m.records = make(map[string]state.Record)
	m.latest = ""
	return nil
}

func (m *memoryStore) Close() error { return nil }

func commitToPlain(t *testing.T, pc *pipeline.Context, ctx context.Context, path, content, msg string) {
	t.Helper()
	full := filepath.Join(pc.Plain.Dir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	require.NoError(t, pc.Plain.Add(ctx, false, path))
	_, err := pc.Plain.Commit(ctx, gitrepo.CommitOpts{Message: msg})
	require.NoError(t, err)
}

func TestCommitMirrorsSingleFile(t *testing.T) {
	pc, ctx := newTestContext(t)
	commitToPlain(t, pc, ctx, "foo.txt", "hello world", "add foo")

	var out, errOut bytes.Buffer
	encHash, err := pc.Commit(ctx, &out, &errOut)
	require.NoError(t, err)
	require.NotEmpty(t, encHash)

	encPath := pathderive.EncPath("foo.txt", "secret")
	require.FileExists(t, filepath.Join(pc.Enc.Dir, encPath))

	plainHead, err := pc.Plain.RevParse(ctx, "HEAD")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(pc.Cfg.ManifestDir(), plainHead))
	require.FileExists(t, filepath.Join(pc.Enc.Dir, "manifest", plainHead))
}

func TestCommitSkipsWhenNothingNew(t *testing.T) {
	pc, ctx := newTestContext(t)
	commitToPlain(t, pc, ctx, "foo.txt", "hello world", "add foo")

	var out, errOut bytes.Buffer
	_, err := pc.Commit(ctx, &out, &errOut)
	require.NoError(t, err)

	out.Reset()
	errOut.Reset()
	hash, err := pc.Commit(ctx, &out, &errOut)
	require.NoError(t, err)
	require.Empty(t, hash)
}

func TestCommitHandlesRenameAndDelete(t *testing.T) {
	pc, ctx := newTestContext(t)
	commitToPlain(t, pc, ctx, "foo.txt", "hello world", "add foo")

	var out, errOut bytes.Buffer
	_, err := pc.Commit(ctx, &out, &errOut)
	require.NoError(t, err)

	oldFull := filepath.Join(pc.Plain.Dir, "foo.txt")
	newFull := filepath.Join(pc.Plain.Dir, "bar.txt")
	require.NoError(t, os.Rename(oldFull, newFull))
	require.NoError(t, pc.Plain.Add(ctx, false, "bar.txt", "foo.txt"))
	_, err = pc.Plain.Commit(ctx, gitrepo.CommitOpts{Message: "rename foo to bar"})
	require.NoError(t, err)

	out.Reset()
	errOut.Reset()
	encHash, err := pc.Commit(ctx, &out, &errOut)
	require.NoError(t, err)
	require.NotEmpty(t, encHash)

	oldEnc := pathderive.EncPath("foo.txt", "secret")
	newEnc := pathderive.EncPath("bar.txt", "secret")
	require.NoFileExists(t, filepath.Join(pc.Enc.Dir, oldEnc))
	require.FileExists(t, filepath.Join(pc.Enc.Dir, newEnc))
}
