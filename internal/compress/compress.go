// Package compress implements the self-describing gzip wrapping used for
// plaintext file bodies and manifests (spec.md §4.3/§4.4): text blobs are
// gzipped before encryption, binary blobs pass through untouched, and the
// decoder tells them apart by attempting a gzip integrity check rather than
// storing a flag.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// sniffLimit is the number of leading bytes inspected to classify a blob,
// per spec.md §4.3.
const sniffLimit = 8 * 1024

// Level is the gzip compression level used for manifests and text blobs
// (spec.md §4.3/§4.4: "level 2").
const Level = gzip.BestSpeed + 1 // 2, kept symbolic for documentation clarity

// Kind classifies a plaintext blob for the purposes of deciding whether to
// gzip it before encryption.
type Kind int

const (
	Text Kind = iota
	Binary
)

// Classify inspects up to the first 8 KiB of data and reports Binary if it
// contains any NUL byte, Text otherwise. This is deliberately narrower than
// a general binary-detection heuristic (no extension table, no
// non-printable-ratio check) because spec.md §4.3 fixes the rule exactly so
// that decode-time detection (GunzipIfValid) stays unambiguous.
func Classify(data []byte) Kind {
	limit := len(data)
	if limit > sniffLimit {
		limit = sniffLimit
	}
	if bytes.IndexByte(data[:limit], 0) != -1 {
		return Binary
	}
	return Text
}

// Gzip compresses data at the given level into a new byte slice.
func Gzip(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("create gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBlob gzips data if it classifies as Text, else returns it unchanged.
func EncodeBlob(data []byte) ([]byte, error) {
	if Classify(data) == Binary {
		return data, nil
	}
	return Gzip(data, Level)
}

// GunzipIfValid attempts to treat data as a gzip stream; on success it
// returns the inflated bytes and true. On any gzip-format error it returns
// the original bytes unchanged and false, meaning "this was never gzipped."
func GunzipIfValid(data []byte) ([]byte, bool) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return data, false
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return data, false
	}
	if err := r.Close(); err != nil {
		return data, false
	}
	return out, true
}
