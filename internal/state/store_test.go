package state_test

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/events"
	"github.com/TheMichaelB/myba/internal/state"
)

func testLogger() *events.Logger {
	return events.NewTestLogger(events.ErrorLevel, "text", io.Discard)
}

func newJSONStore(t *testing.T) *state.JSONStore {
	t.Helper()
	s, err := state.NewJSONStore(filepath.Join(t.TempDir(), "index.json"), testLogger())
	require.NoError(t, err)
	return s
}

func TestJSONStoreGetMissing(t *testing.T) {
	s := newJSONStore(t)
	_, err := s.Get("deadbeef")
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestJSONStorePutAndGet(t *testing.T) {
	s := newJSONStore(t)
	rec := state.Record{
		PlainCommitHash: "plain1",
		EncCommitHash:   "enc1",
		ManifestPath:    "manifest/plain1",
		MirroredAt:      time.Now(),
	}
	require.NoError(t, s.Put(rec))

	got, err := s.Get("plain1")
	require.NoError(t, err)
	assert.Equal(t, rec.EncCommitHash, got.EncCommitHash)
}

func TestJSONStoreLatest(t *testing.T) {
	s := newJSONStore(t)
	older := state.Record{PlainCommitHash: "a", EncCommitHash: "ea", MirroredAt: time.Now().Add(-time.Hour)}
	newer := state.Record{PlainCommitHash: "b", EncCommitHash: "eb", MirroredAt: time.Now()}
	require.NoError(t, s.Put(older))
	require.NoError(t, s.Put(newer))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, "b", latest.PlainCommitHash)
}

func TestJSONStoreReset(t *testing.T) {
	s := newJSONStore(t)
	require.NoError(t, s.Put(state.Record{PlainCommitHash: "a", EncCommitHash: "ea", MirroredAt: time.Now()}))
	require.NoError(t, s.Reset())

	all, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestJSONStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	logger := testLogger()

	s1, err := state.NewJSONStore(path, logger)
	require.NoError(t, err)
	require.NoError(t, s1.Put(state.Record{PlainCommitHash: "a", EncCommitHash: "ea", MirroredAt: time.Now()}))

	s2, err := state.NewJSONStore(path, logger)
	require.NoError(t, err)
	rec, err := s2.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "ea", rec.EncCommitHash)
}
