// Package gitrepo implements the plain-repo and encrypted-repo facades
// (spec.md §4.5/§4.6, components C5/C6). Per spec.md §1 the underlying
// version-control engine is an out-of-scope external collaborator "consumed
// as a service"; Repo is a thin os/exec wrapper over the real git(1)
// binary, grounded on the wrapped-real-tool shape modeled in the pack on
// other_examples/bashhack-gitbak's git wrapper, generalizing
// theMichaelB-obsync's interface-over-backend storage/transport shape from
// an HTTP API onto a local git working copy.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/TheMichaelB/myba/internal/events"
	"github.com/TheMichaelB/myba/internal/models"
)

// Repo is a working copy (or bare repo) driven entirely through git
// subprocess invocations.
type Repo struct {
	// Dir is the repo's work tree: passed to git as -C when GitDir is
	// empty (E), or as --work-tree when GitDir is set (P).
	Dir string

	// GitDir, if set, is passed as --git-dir (used for P, a bare git
	// directory kept apart from its work tree W).
	GitDir string
}

// run execs `git <args...>` against the repo and returns stdout. Failures
// are wrapped as models.VCSError so callers can match on exit code.
func (r *Repo) run(ctx context.Context, args ...string) ([]byte, error) {
	full := r.baseArgs()
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, "git", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	events.FromContext(ctx).WithField("args", full).Debug("git")

	err := cmd.Run()
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return stdout.Bytes(), &models.VCSError{
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
		}
	}
	return stdout.Bytes(), nil
}

// runStdin is run with stdin piped in, used by commands like
// `cat-file --batch-check` that read a list of object names from stdin.
func (r *Repo) runStdin(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	full := r.baseArgs()
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, "git", full...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return stdout.Bytes(), &models.VCSError{Args: args, ExitCode: exitCode, Stderr: stderr.String()}
	}
	return stdout.Bytes(), nil
}

// runText is run plus trailing-newline trimming, for single-line output.
func (r *Repo) runText(ctx context.Context, args ...string) (string, error) {
	out, err := r.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// baseArgs builds the -C/--git-dir/--work-tree prefix common to every
// invocation. P is a bare git dir paired with a separate work tree (W);
// core.bare stays true in its config, but --work-tree on the command
// line overrides that restriction per-invocation ("explicit bare
// work-tree override", spec.md §4.5). E is a normal non-bare repo, where
// -C alone suffices.
func (r *Repo) baseArgs() []string {
	if r.GitDir != "" {
		return []string{"--git-dir", r.GitDir, "--work-tree", r.Dir}
	}
	return []string{"-C", r.Dir}
}

// BaseArgs exposes the -C/--git-dir/--work-tree prefix for callers that
// need to invoke git directly with inherited stdio, the `git`/`git_enc`
// passthrough subcommands.
func (r *Repo) BaseArgs() []string {
	return r.baseArgs()
}

// Config sets a repo-local git config key.
func (r *Repo) Config(ctx context.Context, key, value string) error {
	_, err := r.run(ctx, "config", key, value)
	return err
}

// ConfigUnset removes a repo-local git config key. Missing keys are not
// an error (git exit code 5).
func (r *Repo) ConfigUnset(ctx context.Context, key string) error {
	_, err := r.run(ctx, "config", "--unset-all", key)
	if verr, ok := err.(*models.VCSError); ok && verr.ExitCode == 5 {
		return nil
	}
	return err
}

// Add stages the given paths. sparse, when true, passes --sparse so
// additions outside the current sparse-checkout cone are still staged
// (needed during checkout/restore against a narrowed cone).
func (r *Repo) Add(ctx context.Context, sparse bool, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := []string{"add"}
	if sparse {
		args = append(args, "--sparse")
	}
	args = append(args, paths...)
	_, err := r.run(ctx, args...)
	return err
}

// Rm removes the given paths from the index and working tree.
// --ignore-unmatch tolerates paths git no longer has staged, which
// happens when a delete races an LFS-untracked rename.
func (r *Repo) Rm(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"rm", "-q", "--ignore-unmatch", "--"}, paths...)
	_, err := r.run(ctx, args...)
	return err
}

// CommitOpts carries the fields a commit may need to preserve (used by
// Restore to replay the original plain-side author/date onto P).
type CommitOpts struct {
	Message string
	Author  string // "Name <email>", empty to use repo defaults
	Date    string // RFC 2822 or git's --date format, empty for now
}

// Commit creates a commit from the current index. An empty index (no
// staged changes) is treated as success with no commit created, matching
// spec.md §4.8's "skip commits that produce no staged changes" rule.
func (r *Repo) Commit(ctx context.Context, opts CommitOpts) (string, error) {
	diff, err := r.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(diff)) == 0 {
		return "", nil
	}

	args := []string{"commit", "-q", "-m", opts.Message}
	if opts.Author != "" {
		args = append(args, "--author", opts.Author)
	}
	if opts.Date != "" {
		args = append(args, "--date", opts.Date)
	}
	if _, err := r.run(ctx, args...); err != nil {
		return "", err
	}
	return r.runText(ctx, "rev-parse", "HEAD")
}

// NameStatusEntry is one line of `git diff --name-status` output.
type NameStatusEntry struct {
	Status     string // "A", "M", "D", "R100", "C100", ...
	Path       string
	RenameFrom string // set for R/C statuses
}

// NameStatus reports the name-status records between from and to (commit
// refs; an empty to compares from against the working tree, and both
// empty compare the working tree against the index), the input to the
// commit state machine (spec.md §4.8 table).
func (r *Repo) NameStatus(ctx context.Context, from, to string) ([]NameStatusEntry, error) {
	args := []string{"diff", "--name-status", "-M", "-C"}
	if from != "" {
		args = append(args, from)
	}
	if to != "" {
		args = append(args, to)
	}
	out, err := r.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var entries []NameStatusEntry
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		e := NameStatusEntry{Status: fields[0]}
		switch {
		case len(fields) == 3 && (fields[0][0] == 'R' || fields[0][0] == 'C'):
			e.RenameFrom = fields[1]
			e.Path = fields[2]
		default:
			e.Path = fields[1]
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Status reports short-format `git status --porcelain` lines.
func (r *Repo) Status(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Log returns commit hashes in topological, parent-before-child order,
// the walk order spec.md §4.10's Restore requires.
func (r *Repo) Log(ctx context.Context, revRange string) ([]string, error) {
	out, err := r.run(ctx, "log", "--reverse", "--topo-order", "--pretty=%H", revRange)
	if err != nil {
		return nil, err
	}
	var hashes []string
	for _, line := range strings.Split(string(out), "\n") {
		if line != "" {
			hashes = append(hashes, line)
		}
	}
	return hashes, nil
}

// Diff returns the raw diff between two refs (used by `myba diff`).
func (r *Repo) Diff(ctx context.Context, from, to string) (string, error) {
	args := []string{"diff"}
	if from != "" {
		args = append(args, from)
	}
	if to != "" {
		args = append(args, to)
	}
	return r.runText(ctx, args...)
}

// LsTree lists paths tracked at rev.
func (r *Repo) LsTree(ctx context.Context, rev string) ([]string, error) {
	out, err := r.run(ctx, "ls-tree", "-r", "--name-only", rev)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// RevParse resolves a revision expression to a commit hash.
func (r *Repo) RevParse(ctx context.Context, rev string) (string, error) {
	return r.runText(ctx, "rev-parse", rev)
}

// Checkout checks out rev into the work tree.
func (r *Repo) Checkout(ctx context.Context, rev string) error {
	_, err := r.run(ctx, "checkout", "-q", rev)
	return err
}

// CurrentBranch returns the name of the currently checked-out branch.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	if name, err := r.runText(ctx, "symbolic-ref", "--short", "-q", "HEAD"); err == nil {
		return name, nil
	}
	return r.runText(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// CommitMessage returns the full commit message body (%B) at rev, used to
// recover P's original message when building E's encrypted commit message
// and when replaying commits during Restore.
func (r *Repo) CommitMessage(ctx context.Context, rev string) (string, error) {
	out, err := r.run(ctx, "log", "-1", "--format=%B", rev)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// CommitMeta reports author, ISO-8601 date, and message body at rev in
// one call, using NUL as the field separator since %B may itself contain
// any other byte. Restore embeds all three into the encrypted commit
// message so replay onto P can preserve the original author and date.
func (r *Repo) CommitMeta(ctx context.Context, rev string) (author, date, message string, err error) {
	out, err := r.run(ctx, "log", "-1", "--date=iso-strict", "--format=%an <%ae>%x00%ad%x00%B", rev)
	if err != nil {
		return "", "", "", err
	}
	fields := strings.SplitN(strings.TrimRight(string(out), "\n"), "\x00", 3)
	if len(fields) != 3 {
		return "", "", "", fmt.Errorf("unexpected commit metadata format for %s", rev)
	}
	return fields[0], fields[1], fields[2], nil
}
