package cipher

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/TheMichaelB/myba/internal/models"
)

// runPassphraseFD execs name with args, feeding passphrase to the child
// through an inherited pipe rather than argv or a visible environment
// variable (spec.md §4.1: "the password never appears in a process
// listing"). The read end of the pipe is the child's ExtraFiles[0], which
// Go places at fd 3 immediately after the inherited stdin/stdout/stderr.
// input is written to the child's stdin and the child's stdout is
// returned whole; stderr is captured for error reporting only.
func runPassphraseFD(ctx context.Context, name string, args []string, passphrase string, input []byte) ([]byte, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("open passphrase pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.ExtraFiles = []*os.File{pr}
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start %s: %w", name, err)
	}
	// The child has its own copy of the read end now; close ours so EOF on
	// the write side is visible once we're done writing.
	pr.Close()

	if _, err := pw.Write([]byte(passphrase)); err != nil {
		pw.Close()
		_ = cmd.Wait()
		return nil, fmt.Errorf("write passphrase to %s: %w", name, err)
	}
	pw.Close()

	if err := cmd.Wait(); err != nil {
		return nil, &models.CipherError{
			Mode:   name,
			Reason: stderr.String(),
			Err:    err,
		}
	}

	return stdout.Bytes(), nil
}
