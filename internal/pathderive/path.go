// Package pathderive implements the deterministic plaintext-path -> ciphertext-path
// mapping (spec.md §3/§4.2, component C2). EncPath is a pure function of its
// inputs: no filesystem access, and password never touches a log line or a
// process argument list anywhere in this package.
package pathderive

import (
	"crypto/sha512"
	"encoding/hex"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// EncPath derives the deterministic encrypted path for a plaintext path
// under a password, per spec.md §3 and the Open Question decision recorded
// in SPEC_FULL.md §9: h = SHA512(plain_path || password), fanout
// d/<h[0:2]>/<h[2:4]>/<h[4:]>.
//
// plainPath is normalized to NFC first so that the same logical path
// produces the same hash regardless of which OS or filesystem encoding
// produced the UTF-8 bytes (macOS HFS+ historically yields NFD).
func EncPath(plainPath, password string) string {
	normalized := norm.NFC.String(plainPath)

	h := sha512.New()
	h.Write([]byte(normalized))
	h.Write([]byte(password))
	digest := hex.EncodeToString(h.Sum(nil))

	return "d/" + digest[0:2] + "/" + digest[2:4] + "/" + digest[4:]
}

// Cache memoizes EncPath lookups for a single password, mirroring the
// teacher's PathDecryptor cache: the commit and replay pipelines recompute
// the same plaintext path's enc_path once per touching commit, and SHA-512
// is not free at that call volume.
type Cache struct {
	password string

	mu    sync.Mutex
	cache map[string]string
}

// NewCache creates a path-derivation cache bound to a single password.
func NewCache(password string) *Cache {
	return &Cache{password: password, cache: make(map[string]string)}
}

// EncPath returns the cached enc_path for plainPath, computing and storing
// it on first use.
func (c *Cache) EncPath(plainPath string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.cache[plainPath]; ok {
		return v
	}
	v := EncPath(plainPath, c.password)
	c.cache[plainPath] = v
	return v
}

// Clear removes all cached paths.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]string)
}
