// Package cipher implements the KDF/cipher adapter (spec.md §4.1, component
// C1). Per spec.md §1, the symmetric cipher primitive itself is an
// out-of-scope external collaborator "consumed as a service" — this package
// wraps the real openssl(1) and gpg(1) binaries via os/exec rather than
// reimplementing AES-CTR or the GPG S2K key-stretching scheme, mirroring
// the "external tool as a service" shape modeled in the pack on
// bashhack-gitbak's git wrapper.
package cipher

import "context"

// DefaultOpenSSLIterations is spec.md §6's KDF_ITERS default for
// OpenSSL mode.
const DefaultOpenSSLIterations = 321731

// DefaultGPGIterations is spec.md §6's KDF_ITERS default for GPG mode
// (S2K count).
const DefaultGPGIterations = 32111731

// Provider derives keys from a password and encrypts/decrypts byte
// streams. The passphrase given to the underlying primitive is always
// password ‖ pepper (spec.md §4.1); pepper is the empty string for
// manifests and commit messages, and the plaintext path for per-file blobs.
type Provider interface {
	// Mode names the primitive in use ("openssl" or "gpg"), for error
	// messages and logging.
	Mode() string

	// Encrypt runs plaintext through the primitive under password‖pepper.
	Encrypt(ctx context.Context, pepper string, plaintext []byte) ([]byte, error)

	// Decrypt reverses Encrypt. A wrong password does not reliably
	// surface as an error from the primitive (CTR/GPG-symmetric streams
	// decrypt to garbage rather than failing); callers detect wrong
	// passwords downstream by inspecting the recovered plaintext (see
	// manifest.Decode and models.ErrWrongPassword).
	Decrypt(ctx context.Context, pepper string, ciphertext []byte) ([]byte, error)
}

// New builds a Provider for the given mode.
func New(useGPG bool, password string, iterations int) Provider {
	if useGPG {
		if iterations <= 0 {
			iterations = DefaultGPGIterations
		}
		return &GPGProvider{password: password, iterations: iterations}
	}
	if iterations <= 0 {
		iterations = DefaultOpenSSLIterations
	}
	return &OpenSSLProvider{password: password, iterations: iterations}
}
