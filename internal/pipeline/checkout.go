package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TheMichaelB/myba/internal/compress"
	"github.com/TheMichaelB/myba/internal/events"
	"github.com/TheMichaelB/myba/internal/manifest"
	"github.com/TheMichaelB/myba/internal/models"
	"github.com/TheMichaelB/myba/internal/workerpool"
)

// CheckoutKind reports which of the three input shapes Checkout resolved
// args to (spec.md §4.9).
type CheckoutKind int

const (
	CheckoutPlainCommit CheckoutKind = iota
	CheckoutEncCommit
	CheckoutPathPatterns
)

// Checkout implements `myba checkout PATH… | COMMIT` (spec.md §4.9):
// args is disambiguated by first testing whether it resolves as a commit
// in P, then in E, else every argument is treated as a plaintext path
// pattern.
func (pc *Context) Checkout(ctx context.Context, args []string) (CheckoutKind, error) {
	log := events.FromContext(ctx)

	if len(args) == 1 {
		if _, err := pc.Plain.RevParse(ctx, args[0]); err == nil {
			log.WithField("rev", args[0]).Info("checkout: resolved in plain repo")
			return CheckoutPlainCommit, pc.Plain.Checkout(ctx, args[0])
		}
		if _, err := pc.Enc.RevParse(ctx, args[0]); err == nil {
			log.WithField("rev", args[0]).Info("checkout: resolved in encrypted repo")
			return CheckoutEncCommit, pc.checkoutEncCommit(ctx, args[0])
		}
	}

	log.WithField("patterns", args).Info("checkout: treating arguments as path patterns")
	return CheckoutPathPatterns, pc.checkoutPathPatterns(ctx, args)
}

// RefreshManifests decrypts every manifest currently materialized under
// E's manifest/ directory into P's plaintext manifest mirror, the step
// `pull`/`clone` run after fetching new encrypted history (spec.md
// §4.11).
func (pc *Context) RefreshManifests(ctx context.Context) error {
	return pc.decryptManifests(ctx)
}

// checkoutEncCommit narrows E to manifest/, checks it out at rev, and
// decrypts every manifest found there into P's manifest mirror.
func (pc *Context) checkoutEncCommit(ctx context.Context, rev string) error {
	if err := pc.Enc.SparseCheckoutSet(ctx, []string{"manifest/", selfCopyPattern}); err != nil {
		return err
	}
	if err := pc.Enc.Checkout(ctx, rev); err != nil {
		return err
	}
	return pc.decryptManifests(ctx)
}

// decryptManifests decrypts every ciphertext manifest currently
// materialized under E's manifest/ directory into P's plaintext manifest
// mirror. Wrong-password manifests are removed rather than left corrupt,
// per spec.md §8's "bad manifest files are removed so retrying with the
// correct password is clean."
func (pc *Context) decryptManifests(ctx context.Context) error {
	dir := filepath.Join(pc.Enc.Dir, "manifest")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	log := events.FromContext(ctx)
	if err := os.MkdirAll(pc.Cfg.ManifestDir(), 0o755); err != nil {
		return err
	}

	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		cipherText, err := os.ReadFile(filepath.Join(dir, ent.Name()))
		if err != nil {
			return err
		}
		gz, err := pc.Cipher.Decrypt(ctx, "", cipherText)
		if err != nil {
			log.WithField("commit", ent.Name()).WithError(err).Warn("failed to decrypt manifest")
			continue
		}
		manifestEntries, err := manifest.DecodeFromStorage(gz)
		if err != nil {
			log.WithField("commit", ent.Name()).WithError(err).Warn("dropping unreadable manifest, likely wrong password")
			_ = os.Remove(filepath.Join(pc.Cfg.ManifestDir(), ent.Name()))
			continue
		}
		if err := os.WriteFile(filepath.Join(pc.Cfg.ManifestDir(), ent.Name()), manifest.Encode(manifestEntries), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// checkoutPathPatterns scans P's local manifest mirror for entries whose
// plaintext side matches any of patterns, narrows E's sparse cone to
// exactly those enc-paths' parent directories, and decrypts the matched
// files into W.
func (pc *Context) checkoutPathPatterns(ctx context.Context, patterns []string) error {
	all, err := pc.loadLocalManifests()
	if err != nil {
		return err
	}

	var matched []manifest.Entry
	for _, pattern := range patterns {
		matched = append(matched, manifest.MatchPlainPrefix(all, pattern)...)
	}
	matched = manifest.Aggregate(matched)
	if len(matched) == 0 {
		return fmt.Errorf("no manifest entries match: %s", strings.Join(patterns, ", "))
	}

	encPaths := make([]string, len(matched))
	for i, e := range matched {
		encPaths[i] = e.EncPath
	}
	cone := append([]string{"manifest/", selfCopyPattern}, coneDirs(encPaths)...)
	if err := pc.Enc.SparseCheckoutSet(ctx, cone); err != nil {
		return err
	}

	toWrite, declined, err := pc.resolveOverwrites(matched)
	if err != nil {
		return err
	}

	jobs := make([]workerpool.Job, 0, len(toWrite))
	for _, e := range toWrite {
		e := e
		jobs = append(jobs, workerpool.Job{
			Label: e.PlainPath,
			Run: func(ctx context.Context) ([]byte, []byte, error) {
				if err := pc.decryptEntryToWorkTree(ctx, e); err != nil {
					return nil, nil, err
				}
				return []byte(fmt.Sprintf("restored %s\n", e.PlainPath)), nil, nil
			},
		})
	}

	var out, errOut writerDiscard
	if _, err := pc.Pool.Run(ctx, jobs, out, errOut); err != nil {
		return err
	}
	if len(declined) > 0 {
		return fmt.Errorf("%w: %s", models.ErrOverwriteRefused, strings.Join(declined, ", "))
	}
	return nil
}

// writerDiscard implements io.Writer without importing io/ioutil for a
// single throwaway sink; checkoutPathPatterns drops the per-file progress
// lines into it, and Checkout does not return them.
type writerDiscard struct{}

func (writerDiscard) Write(p []byte) (int, error) { return len(p), nil }

// resolveOverwrites prompts (serially, since TTY prompts cannot be
// parallelized) for every matched entry whose plain_path already exists
// under W, honoring YES_OVERWRITE. Returns the entries clear to write and
// the plain paths the user declined.
func (pc *Context) resolveOverwrites(matched []manifest.Entry) (toWrite []manifest.Entry, declined []string, err error) {
	for _, e := range matched {
		dst := filepath.Join(pc.Plain.Dir, e.PlainPath)
		if _, statErr := os.Stat(dst); statErr != nil {
			toWrite = append(toWrite, e)
			continue
		}
		if pc.Cfg.YesOverwrite {
			toWrite = append(toWrite, e)
			continue
		}
		if pc.TTY == nil {
			declined = append(declined, e.PlainPath)
			continue
		}
		ok, cerr := pc.TTY.Confirm(fmt.Sprintf("overwrite %s?", e.PlainPath))
		if cerr != nil {
			return nil, nil, cerr
		}
		if ok {
			toWrite = append(toWrite, e)
		} else {
			declined = append(declined, e.PlainPath)
		}
	}
	return toWrite, declined, nil
}

// decryptEntryToWorkTree decrypts one manifest entry's ciphertext and
// writes the recovered plaintext into W at plain_path.
func (pc *Context) decryptEntryToWorkTree(ctx context.Context, e manifest.Entry) error {
	cipherText, err := os.ReadFile(filepath.Join(pc.Enc.Dir, e.EncPath))
	if err != nil {
		return fmt.Errorf("read %s: %w", e.EncPath, err)
	}
	body, err := pc.Cipher.Decrypt(ctx, e.PlainPath, cipherText)
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", e.PlainPath, err)
	}
	plain, _ := compress.GunzipIfValid(body)

	dst := filepath.Join(pc.Plain.Dir, e.PlainPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, plain, 0o644)
}

// loadLocalManifests decodes every manifest file already present under
// P's manifest mirror.
func (pc *Context) loadLocalManifests() ([]manifest.Entry, error) {
	dir := pc.Cfg.ManifestDir()
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	var all []manifest.Entry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			return nil, err
		}
		entries, err := manifest.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode local manifest %s: %w", f.Name(), err)
		}
		all = append(all, entries...)
	}
	return all, nil
}
