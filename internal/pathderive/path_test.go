package pathderive_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/myba/internal/pathderive"
)

var encPathPattern = regexp.MustCompile(`^d/[0-9a-f]{2}/[0-9a-f]{2}/[0-9a-f]{124}$`)

func TestEncPathShape(t *testing.T) {
	p := pathderive.EncPath("foo/bar.txt", "secret")
	assert.Regexp(t, encPathPattern, p)
}

func TestEncPathIsDeterministic(t *testing.T) {
	a := pathderive.EncPath("foo/bar.txt", "secret")
	b := pathderive.EncPath("foo/bar.txt", "secret")
	assert.Equal(t, a, b)
}

func TestEncPathDiffersByPath(t *testing.T) {
	a := pathderive.EncPath("foo/bar.txt", "secret")
	b := pathderive.EncPath("foo/baz.txt", "secret")
	assert.NotEqual(t, a, b)
}

func TestEncPathDiffersByPassword(t *testing.T) {
	a := pathderive.EncPath("foo/bar.txt", "secret")
	b := pathderive.EncPath("foo/bar.txt", "different")
	assert.NotEqual(t, a, b)
}

func TestCacheReturnsSameValue(t *testing.T) {
	c := pathderive.NewCache("secret")
	a := c.EncPath("foo/bar.txt")
	b := c.EncPath("foo/bar.txt")
	assert.Equal(t, a, b)
	assert.Equal(t, pathderive.EncPath("foo/bar.txt", "secret"), a)
}

func TestCacheClear(t *testing.T) {
	c := pathderive.NewCache("secret")
	_ = c.EncPath("foo/bar.txt")
	c.Clear()
	// Clearing must not change the derived value, only the memoization.
	assert.Equal(t, pathderive.EncPath("foo/bar.txt", "secret"), c.EncPath("foo/bar.txt"))
}
