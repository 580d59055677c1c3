package cipher

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/pbkdf2"
)

// checkValueIterations is deliberately small: this is a local fast-fail
// pre-check, not the repo's actual KDF, so it doesn't need to carry the
// real iteration count.
const checkValueIterations = 10000

const checkValueSalt = "myba-password-check-v1"

// CheckValue derives a short fingerprint of password that is cheap to
// compute (unlike actually shelling out to openssl/gpg) and cheap to
// store alongside a repo, grounded on mmp-bk's passphraseHash check used
// to fail fast on a wrong password before touching any ciphertext. No
// package in this repo stores it; manifest.Decode's NUL-byte check is
// what detects a wrong password.
func CheckValue(password string) string {
	derived := pbkdf2.Key([]byte(password), []byte(checkValueSalt), checkValueIterations, sha256.Size, sha256.New)
	mac := hmac.New(sha256.New, derived)
	mac.Write([]byte(checkValueSalt))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCheckValue reports whether password matches the password that
// produced want.
func VerifyCheckValue(password, want string) bool {
	got := CheckValue(password)
	return hmac.Equal([]byte(got), []byte(want))
}
