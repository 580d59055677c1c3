package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/myba/internal/models"
)

func TestPipelineError(t *testing.T) {
	tests := []struct {
		name string
		err  *models.PipelineError
		want string
	}{
		{
			name: "with path",
			err: &models.PipelineError{
				Code:   models.ErrCodeCipher,
				Phase:  "commit",
				Commit: "abc123",
				Path:   "notes/test.md",
				Err:    errors.New("key derivation failed"),
			},
			want: "commit [CIPHER_FAILED]: commit abc123: notes/test.md: key derivation failed",
		},
		{
			name: "without path",
			err: &models.PipelineError{
				Code:   models.ErrCodeVCSOperation,
				Phase:  "checkout",
				Commit: "def456",
				Err:    errors.New("sparse-checkout failed"),
			},
			want: "checkout [VCS_OPERATION_FAILED]: commit def456: sparse-checkout failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestVCSError(t *testing.T) {
	err := &models.VCSError{
		Args:     []string{"git", "commit"},
		ExitCode: 1,
		Stderr:   "nothing to commit",
	}
	assert.Contains(t, err.Error(), "exit 1")
	assert.Contains(t, err.Error(), "nothing to commit")
}

func TestCipherError(t *testing.T) {
	tests := []struct {
		name string
		err  *models.CipherError
		want string
	}{
		{
			name: "wraps underlying error",
			err: &models.CipherError{
				Mode:   "openssl",
				Reason: "invalid key",
				Err:    errors.New("cipher: message authentication failed"),
			},
			want: "openssl: invalid key: cipher: message authentication failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestIntegrityError(t *testing.T) {
	err := &models.IntegrityError{
		Path:     "notes/test.md",
		Expected: "abc123",
		Actual:   "def456",
	}

	want := "integrity check failed for notes/test.md: expected abc123, got def456"
	assert.Equal(t, want, err.Error())
}

func TestErrorUnwrapping(t *testing.T) {
	baseErr := errors.New("base error")

	t.Run("PipelineError unwrap", func(t *testing.T) {
		pipeErr := &models.PipelineError{
			Code:   models.ErrCodeVCSOperation,
			Phase:  "connect",
			Commit: "abc123",
			Err:    baseErr,
		}
		assert.Equal(t, baseErr, errors.Unwrap(pipeErr))
	})

	t.Run("CipherError unwrap", func(t *testing.T) {
		cipherErr := &models.CipherError{
			Mode:   "openssl",
			Reason: "invalid key",
			Err:    baseErr,
		}
		assert.Equal(t, baseErr, errors.Unwrap(cipherErr))
	})
}
