package compress_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/myba/internal/compress"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, compress.Text, compress.Classify([]byte("hello\nworld\n")))
	assert.Equal(t, compress.Binary, compress.Classify([]byte{0x89, 'P', 'N', 'G', 0x00}))
	assert.Equal(t, compress.Text, compress.Classify(nil))
}

func TestClassifyOnlySniffsFirst8KiB(t *testing.T) {
	data := append([]byte(strings.Repeat("a", 8*1024)), 0x00)
	assert.Equal(t, compress.Text, compress.Classify(data))
}

func TestGzipRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox\n", 100))

	gz, err := compress.Gzip(data, compress.Level)
	require.NoError(t, err)
	assert.NotEqual(t, data, gz)

	out, ok := compress.GunzipIfValid(gz)
	require.True(t, ok)
	assert.Equal(t, data, out)
}

func TestGunzipIfValidPassesThroughNonGzip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x01, 0x02}
	out, ok := compress.GunzipIfValid(data)
	assert.False(t, ok)
	assert.Equal(t, data, out)
}

func TestEncodeBlobSkipsBinary(t *testing.T) {
	data := bytes.Repeat([]byte{0x00, 0x01}, 10)
	out, err := compress.EncodeBlob(data)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestEncodeBlobCompressesText(t *testing.T) {
	data := []byte(strings.Repeat("plain text content\n", 50))
	out, err := compress.EncodeBlob(data)
	require.NoError(t, err)

	inflated, ok := compress.GunzipIfValid(out)
	require.True(t, ok)
	assert.Equal(t, data, inflated)
}
