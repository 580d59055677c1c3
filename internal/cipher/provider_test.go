package cipher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/myba/internal/cipher"
)

func TestNewSelectsModeWithDefaultIterations(t *testing.T) {
	openssl := cipher.New(false, "pw", 0)
	assert.Equal(t, "openssl", openssl.Mode())

	gpg := cipher.New(true, "pw", 0)
	assert.Equal(t, "gpg", gpg.Mode())
}

func TestNewSelectsModeWithExplicitIterations(t *testing.T) {
	p := cipher.New(false, "pw", 7)
	assert.Equal(t, "openssl", p.Mode())
}
