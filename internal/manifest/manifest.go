// Package manifest implements the per-commit manifest codec (spec.md §3/§4.4,
// component C4): a plaintext manifest is a list of (enc_path, plain_path)
// pairs, one commit's worth of additions/modifications/renames/copies. The
// encoded (on-disk, in E) form is gzip(-2) then a cipher.Provider encryption
// with the empty pepper.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/TheMichaelB/myba/internal/compress"
	"github.com/TheMichaelB/myba/internal/models"
)

// Entry binds one ciphertext path to the plaintext path it decrypts to.
type Entry struct {
	EncPath   string
	PlainPath string
}

// Encode renders entries as the plaintext manifest body: lines of
// "<enc_path>\t<plain_path>\n" in the given order (spec.md §3: "order is
// insertion order of the commit walk").
func Encode(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s\t%s\n", e.EncPath, e.PlainPath)
	}
	return buf.Bytes()
}

// Decode parses a plaintext manifest body. A NUL byte anywhere in data
// indicates the caller handed us gibberish recovered with the wrong
// password (spec.md §7's wrong-password inference rule) rather than a
// malformed manifest, so that case is reported as models.ErrWrongPassword
// instead of a generic parse error.
func Decode(data []byte) ([]Entry, error) {
	if bytes.IndexByte(data, 0) != -1 {
		return nil, models.ErrWrongPassword
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		tab := strings.IndexByte(line, '\t')
		if tab < 0 {
			return nil, fmt.Errorf("manifest line missing tab separator: %q", line)
		}
		entries = append(entries, Entry{
			EncPath:   line[:tab],
			PlainPath: line[tab+1:],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return entries, nil
}

// EncodeForStorage gzips the manifest body; callers are expected to follow
// this with a cipher.Provider.Encrypt call using the empty pepper before
// writing into E at manifest/<plain_commit_hash>.
func EncodeForStorage(entries []Entry) ([]byte, error) {
	body := Encode(entries)
	return compress.Gzip(body, compress.Level)
}

// DecodeFromStorage reverses EncodeForStorage: gunzip then Decode. Callers
// are expected to have already run cipher.Provider.Decrypt on gz.
func DecodeFromStorage(gz []byte) ([]Entry, error) {
	body, ok := compress.GunzipIfValid(gz)
	if !ok {
		// A manifest that fails to gunzip was never a valid manifest in
		// the first place (manifests are always compressed); treat it the
		// same as a decode failure under the wrong password.
		if bytes.IndexByte(gz, 0) != -1 {
			return nil, models.ErrWrongPassword
		}
		return nil, fmt.Errorf("manifest is not valid gzip")
	}
	return Decode(body)
}

// Aggregate merges entries from multiple decoded manifests into a
// sorted-unique (by enc_path) list, used by `decrypt --squash` and by the
// checkout path-pattern scan.
func Aggregate(manifests ...[]Entry) []Entry {
	seen := make(map[string]Entry)
	for _, m := range manifests {
		for _, e := range m {
			seen[e.EncPath] = e
		}
	}

	out := make([]Entry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EncPath < out[j].EncPath })
	return out
}

// MatchPlainPrefix filters entries whose plain path matches
// ^<pattern>(/|$), per spec.md §4.9's checkout path-pattern rule.
func MatchPlainPrefix(entries []Entry, pattern string) []Entry {
	pattern = strings.TrimSuffix(pattern, "/")
	var out []Entry
	for _, e := range entries {
		if e.PlainPath == pattern || strings.HasPrefix(e.PlainPath, pattern+"/") {
			out = append(out, e)
		}
	}
	return out
}
