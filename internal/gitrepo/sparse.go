package gitrepo

import "context"

// SparseCheckoutSet installs cone, a set of directory/file patterns, as
// E's sparse-checkout cone (spec.md §4.9's "cone-mode requires directory
// prefixes" note — callers are expected to have already truncated
// enc-paths to parent directories).
func (r *Repo) SparseCheckoutSet(ctx context.Context, cone []string) error {
	args := append([]string{"sparse-checkout", "set", "--cone"}, cone...)
	_, err := r.run(ctx, args...)
	return err
}

// SparseCheckoutDisable turns off sparse-checkout entirely, materializing
// the full working tree (used by reencrypt, which must see every
// encrypted entry to remove it).
func (r *Repo) SparseCheckoutDisable(ctx context.Context) error {
	_, err := r.run(ctx, "sparse-checkout", "disable")
	return err
}
