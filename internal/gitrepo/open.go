package gitrepo

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// OpenPlain opens or initializes P, the bare plain repo (spec.md §4.5),
// paired with workTree (W) as its externally-supplied work tree:
// rename-and-copy detection, a large rename limit, global excludes
// ignored, and an explicit bare work-tree override on every invocation
// (baseArgs) so commands still operate against workTree despite
// core.bare staying true.
func OpenPlain(ctx context.Context, workTree, gitDir string) (*Repo, error) {
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		if err := exec.CommandContext(ctx, "git", "init", "-q", "--bare", gitDir).Run(); err != nil {
			return nil, fmt.Errorf("init plain repo: %w", err)
		}
	}
	if err := os.MkdirAll(workTree, 0o755); err != nil {
		return nil, fmt.Errorf("create work tree: %w", err)
	}

	r := &Repo{Dir: workTree, GitDir: gitDir}
	settings := [][2]string{
		{"diff.renames", "copies"},
		{"diff.renameLimit", "999999"},
		{"core.excludesfile", ""},
		{"core.bare", "true"},
	}
	for _, kv := range settings {
		if err := r.Config(ctx, kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("configure plain repo: %w", err)
		}
	}
	return r, nil
}

// OpenEncrypted opens or initializes E, the syncable encrypted repo
// (spec.md §4.6): every blob treated as opaque binary (bigFileThreshold
// so nothing is diffed byte-wise), push.default=current, 4-way fetch
// parallelism, sparse-checkout enabled with the manifest/ + self-copy
// cone, and info/attributes marking every path binary-and-no-diff.
func OpenEncrypted(ctx context.Context, workTree string) (*Repo, error) {
	if _, err := os.Stat(workTree + "/.git"); os.IsNotExist(err) {
		if err := exec.CommandContext(ctx, "git", "init", "-q", workTree).Run(); err != nil {
			return nil, fmt.Errorf("init encrypted repo: %w", err)
		}
	}

	r := &Repo{Dir: workTree}
	settings := [][2]string{
		{"core.bigFileThreshold", "100"},
		{"push.default", "current"},
		{"fetch.parallel", "4"},
		{"core.sparseCheckout", "true"},
	}
	for _, kv := range settings {
		if err := r.Config(ctx, kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("configure encrypted repo: %w", err)
		}
	}

	if err := r.writeAttributes(); err != nil {
		return nil, err
	}
	if err := r.SparseCheckoutSet(ctx, []string{"manifest/", selfCopyPattern}); err != nil {
		return nil, fmt.Errorf("set initial sparse cone: %w", err)
	}
	return r, nil
}

// selfCopyPattern is the sparse-checkout cone entry that always keeps the
// tool's own bootstrap copy materialized (spec.md §3's "tool-self copy").
const selfCopyPattern = ".myba-bootstrap/"

// gitDirPath resolves the actual .git directory for this repo, whether
// it's an explicit bare GitDir (P) or the conventional Dir/.git (E).
func (r *Repo) gitDirPath() string {
	if r.GitDir != "" {
		return r.GitDir
	}
	return r.Dir + "/.git"
}

// writeAttributes installs the `* binary -diff` rule into E's
// info/attributes, making every enc-path opaque to git's text diff/merge
// machinery (every byte is ciphertext, so there is nothing meaningful to
// diff).
func (r *Repo) writeAttributes() error {
	dir := r.gitDirPath() + "/info"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create info dir: %w", err)
	}
	return os.WriteFile(dir+"/attributes", []byte("* binary -diff\n"), 0o644)
}
