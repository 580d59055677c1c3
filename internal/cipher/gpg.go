package cipher

import (
	"context"
	"strconv"
)

// GPGProvider wraps the gpg(1) symmetric-encryption mode as the
// alternative cipher primitive (spec.md §6's USE_GPG switch). Unlike
// OpenSSLProvider it needs no header surgery: gpg's own packet framing
// already carries everything needed to decrypt, so the stored ciphertext
// is gpg's output verbatim.
type GPGProvider struct {
	password   string
	iterations int
}

func (p *GPGProvider) Mode() string { return "gpg" }

func (p *GPGProvider) baseArgs() []string {
	return []string{
		"--batch", "--yes", "--quiet",
		"--pinentry-mode", "loopback",
		"--passphrase-fd", "3",
		"--cipher-algo", "AES256",
		"--s2k-mode", "3",
		"--s2k-digest-algo", "SHA512",
		"--s2k-count", strconv.Itoa(p.iterations),
	}
}

func (p *GPGProvider) Encrypt(ctx context.Context, pepper string, plaintext []byte) ([]byte, error) {
	args := append(p.baseArgs(), "--symmetric", "--compress-algo", "none", "-o", "-")
	return runPassphraseFD(ctx, "gpg", args, p.password+pepper, plaintext)
}

func (p *GPGProvider) Decrypt(ctx context.Context, pepper string, ciphertext []byte) ([]byte, error) {
	args := append(p.baseArgs(), "--decrypt", "-o", "-")
	return runPassphraseFD(ctx, "gpg", args, p.password+pepper, ciphertext)
}
