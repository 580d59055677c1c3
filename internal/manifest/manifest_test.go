package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/manifest"
	"github.com/TheMichaelB/myba/internal/models"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entries := []manifest.Entry{
		{EncPath: "d/ab/cd/ef01", PlainPath: "foo/.dotfile"},
		{EncPath: "d/12/34/5678", PlainPath: "foo/other.file"},
	}

	encoded := manifest.Encode(entries)
	decoded, err := manifest.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestDecodeDetectsWrongPassword(t *testing.T) {
	garbage := []byte{0x01, 0x00, 0x02, 0x03}
	_, err := manifest.Decode(garbage)
	assert.ErrorIs(t, err, models.ErrWrongPassword)
}

func TestStorageRoundTrip(t *testing.T) {
	entries := []manifest.Entry{
		{EncPath: "d/aa/bb/cc", PlainPath: "a/b.txt"},
	}

	gz, err := manifest.EncodeForStorage(entries)
	require.NoError(t, err)

	decoded, err := manifest.DecodeFromStorage(gz)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestAggregateSortedUnique(t *testing.T) {
	m1 := []manifest.Entry{{EncPath: "b", PlainPath: "b.txt"}}
	m2 := []manifest.Entry{
		{EncPath: "a", PlainPath: "a.txt"},
		{EncPath: "b", PlainPath: "b-renamed.txt"}, // last write wins for a dup key
	}

	out := manifest.Aggregate(m1, m2)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].EncPath)
	assert.Equal(t, "b", out[1].EncPath)
	assert.Equal(t, "b-renamed.txt", out[1].PlainPath)
}

func TestMatchPlainPrefix(t *testing.T) {
	entries := []manifest.Entry{
		{EncPath: "1", PlainPath: "foo/a.txt"},
		{EncPath: "2", PlainPath: "foo/sub/b.txt"},
		{EncPath: "3", PlainPath: "foobar/c.txt"},
		{EncPath: "4", PlainPath: "foo"},
	}

	matched := manifest.MatchPlainPrefix(entries, "foo")
	var plainPaths []string
	for _, e := range matched {
		plainPaths = append(plainPaths, e.PlainPath)
	}
	assert.ElementsMatch(t, []string{"foo/a.txt", "foo/sub/b.txt", "foo"}, plainPaths)
}
