package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/TheMichaelB/myba/internal/models"
)

// RemoteAdd registers name at url on E and marks it promisor with a
// blob:none filter, so fetches pull trees/commits eagerly and blobs
// lazily (spec.md §4.11).
func (r *Repo) RemoteAdd(ctx context.Context, name, url string) error {
	if _, err := r.run(ctx, "remote", "add", name, url); err != nil {
		return err
	}
	return r.RemotePromisor(ctx, name)
}

// RemotePromisor marks an already-registered remote as a partial-clone
// promisor with filter blob:none.
func (r *Repo) RemotePromisor(ctx context.Context, name string) error {
	if err := r.Config(ctx, fmt.Sprintf("remote.%s.promisor", name), "true"); err != nil {
		return err
	}
	return r.Config(ctx, fmt.Sprintf("remote.%s.partialclonefilter", name), "blob:none")
}

// RemoteSnapshot captures enough of a remote's configuration to
// reconstruct it after a RemoveAllRemotes round trip.
type RemoteSnapshot struct {
	Name     string
	URL      string
	Promisor bool
	Filter   string
}

// Remotes lists the remotes currently registered on the repo.
func (r *Repo) Remotes(ctx context.Context) ([]RemoteSnapshot, error) {
	out, err := r.runText(ctx, "remote", "-v")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	seen := make(map[string]bool)
	var snaps []RemoteSnapshot
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true

		promisor, _ := r.runText(ctx, "config", fmt.Sprintf("remote.%s.promisor", fields[0]))
		filter, _ := r.runText(ctx, "config", fmt.Sprintf("remote.%s.partialclonefilter", fields[0]))
		snaps = append(snaps, RemoteSnapshot{
			Name:     fields[0],
			URL:      fields[1],
			Promisor: promisor == "true",
			Filter:   filter,
		})
	}
	return snaps, nil
}

// RemoveAllRemotes removes every registered remote and returns a
// snapshot sufficient for RestoreRemotes to put them back. This
// implements the "temporarily remove all remote registrations" step of
// spec.md §4.8's bulk-add performance detail: with no remotes configured,
// a promisor remote's lazy per-path fetch round trip cannot fire during
// the bulk `enc add`. Callers must run the paired RestoreRemotes in a
// guaranteed-release scope (internal/cleanup.Stack) so a failure mid-add
// never leaves E with no remotes.
func (r *Repo) RemoveAllRemotes(ctx context.Context) ([]RemoteSnapshot, error) {
	snaps, err := r.Remotes(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range snaps {
		if _, err := r.run(ctx, "remote", "remove", s.Name); err != nil {
			return snaps, err
		}
	}
	return snaps, nil
}

// RestoreRemotes re-registers every remote captured by RemoveAllRemotes.
func (r *Repo) RestoreRemotes(ctx context.Context, snaps []RemoteSnapshot) error {
	for _, s := range snaps {
		if _, err := r.run(ctx, "remote", "add", s.Name, s.URL); err != nil {
			return err
		}
		if s.Promisor {
			if err := r.Config(ctx, fmt.Sprintf("remote.%s.promisor", s.Name), "true"); err != nil {
				return err
			}
		}
		if s.Filter != "" {
			if err := r.Config(ctx, fmt.Sprintf("remote.%s.partialclonefilter", s.Name), s.Filter); err != nil {
				return err
			}
		}
	}
	return nil
}

// Fetch fetches from remote (or all remotes when remote is ""). refetch,
// when true, passes --refetch --all, the form `push` uses afterward to
// reacquire promisor state (spec.md §4.11).
func (r *Repo) Fetch(ctx context.Context, remote string, refetch bool) error {
	args := []string{"fetch"}
	if refetch {
		args = append(args, "--refetch", "--all")
	} else if remote != "" {
		args = append(args, remote)
	} else {
		args = append(args, "--all")
	}
	_, err := r.run(ctx, args...)
	return err
}

// Push pushes the current branch to remote.
func (r *Repo) Push(ctx context.Context, remote string) error {
	_, err := r.run(ctx, "push", remote)
	return err
}

// Pull fetches and fast-forward merges from remote, or from git's
// configured default remote when remote is "".
func (r *Repo) Pull(ctx context.Context, remote string) error {
	args := []string{"pull", "--ff-only"}
	if remote != "" {
		args = append(args, remote)
	}
	_, err := r.run(ctx, args...)
	return err
}

// Clone clones url into dir as a partial, sparse clone. Applying
// OpenEncrypted's remaining profile (per-remote promisor config,
// info/attributes) to the fresh clone is the caller's responsibility.
func Clone(ctx context.Context, url, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "clone", "--filter=blob:none", "--sparse", url, dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return &models.VCSError{Args: []string{"clone", url, dir}, ExitCode: exitCode, Stderr: stderr.String()}
	}
	return nil
}
