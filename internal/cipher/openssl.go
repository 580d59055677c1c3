package cipher

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/TheMichaelB/myba/internal/models"
)

// opensslMagic is the literal header openssl enc -salt writes at the start
// of its output: the 8 ASCII bytes "Salted__" followed by an 8-byte salt.
var opensslMagic = []byte("Salted__")

const opensslSaltLen = 8

// OpenSSLProvider wraps the openssl(1) enc subcommand. It stores
// ciphertext without the leading "Salted__" literal (the salt itself is
// kept, immediately followed by the ciphertext) and re-synthesizes the
// literal on decrypt, since openssl enc -d expects to see it at the head
// of the stream in order to recover the salt itself.
type OpenSSLProvider struct {
	password   string
	iterations int
}

func (p *OpenSSLProvider) Mode() string { return "openssl" }

func (p *OpenSSLProvider) baseArgs() []string {
	return []string{
		"enc", "-aes-256-ctr", "-pbkdf2",
		"-iter", strconv.Itoa(p.iterations),
		"-md", "sha512",
		"-pass", "fd:3",
	}
}

// Encrypt runs plaintext through openssl enc -salt and strips the 8-byte
// "Salted__" literal from the head of the result, keeping the salt that
// follows it.
func (p *OpenSSLProvider) Encrypt(ctx context.Context, pepper string, plaintext []byte) ([]byte, error) {
	args := append(p.baseArgs(), "-e", "-salt")
	out, err := runPassphraseFD(ctx, "openssl", args, p.password+pepper, plaintext)
	if err != nil {
		return nil, err
	}

	if len(out) < len(opensslMagic) || !bytes.Equal(out[:len(opensslMagic)], opensslMagic) {
		return nil, &models.CipherError{
			Mode:   "openssl",
			Reason: "encrypt output is missing the Salted__ header",
		}
	}
	return out[len(opensslMagic):], nil
}

// Decrypt re-prepends the "Salted__" literal to ciphertext and feeds the
// result to openssl enc -d, which parses the salt back out of the stream.
func (p *OpenSSLProvider) Decrypt(ctx context.Context, pepper string, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < opensslSaltLen {
		return nil, fmt.Errorf("ciphertext shorter than a salt: %d bytes", len(ciphertext))
	}

	full := make([]byte, 0, len(opensslMagic)+len(ciphertext))
	full = append(full, opensslMagic...)
	full = append(full, ciphertext...)

	args := append(p.baseArgs(), "-d")
	return runPassphraseFD(ctx, "openssl", args, p.password+pepper, full)
}
