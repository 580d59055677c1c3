package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheMichaelB/myba/internal/cipher"
	"github.com/TheMichaelB/myba/internal/events"
	"github.com/TheMichaelB/myba/internal/gitrepo"
	"github.com/TheMichaelB/myba/internal/manifest"
	"github.com/TheMichaelB/myba/internal/models"
	"github.com/TheMichaelB/myba/internal/pathderive"
	"github.com/TheMichaelB/myba/internal/state"
)

// Restore implements `myba decrypt [--squash]` (spec.md §4.10, C10):
// sequential replay reconstructs P's full commit DAG; squash ignores
// history and produces a single commit holding the union of every
// tracked file's current content.
func (pc *Context) Restore(ctx context.Context, squash bool) error {
	if _, err := pc.Plain.RevParse(ctx, "HEAD"); err == nil && !pc.Cfg.YesOverwrite {
		return models.ErrAlreadyRestored
	}
	if squash {
		return pc.restoreSquash(ctx)
	}
	return pc.restoreSequential(ctx)
}

// restoreSquash aggregates every local manifest's entries (sorted-unique
// by enc_path, per spec.md §4.10) and writes a single commit holding
// their current content. Entries whose blob no longer exists in E (a
// path that was later renamed away or deleted, whose old manifest line
// still lingers in an earlier commit's manifest file, since manifests
// never record deletes) are skipped with a warning rather than failing
// the whole squash.
func (pc *Context) restoreSquash(ctx context.Context) error {
	log := events.FromContext(ctx)

	if err := pc.Enc.SparseCheckoutSet(ctx, []string{"manifest/", selfCopyPattern}); err != nil {
		return err
	}
	if err := pc.decryptManifests(ctx); err != nil {
		return err
	}

	all, err := pc.loadLocalManifests()
	if err != nil {
		return err
	}
	entries := manifest.Aggregate(all)
	if len(entries) == 0 {
		return fmt.Errorf("no manifest entries found to restore")
	}

	encPaths := make([]string, len(entries))
	for i, e := range entries {
		encPaths[i] = e.EncPath
	}
	cone := append([]string{"manifest/", selfCopyPattern}, coneDirs(encPaths)...)
	if err := pc.Enc.SparseCheckoutSet(ctx, cone); err != nil {
		return err
	}

	var written []string
	for _, e := range entries {
		if _, err := os.Stat(filepath.Join(pc.Enc.Dir, e.EncPath)); err != nil {
			log.WithField("path", e.PlainPath).Warn("squash: blob missing, skipping (superseded rename/delete)")
			continue
		}
		if err := pc.decryptEntryToWorkTree(ctx, e); err != nil {
			return err
		}
		written = append(written, e.PlainPath)
	}
	if len(written) == 0 {
		return fmt.Errorf("no manifest entries had a live blob to restore")
	}

	if err := pc.Plain.Add(ctx, false, written...); err != nil {
		return err
	}
	msg := fmt.Sprintf("Restore at %s", time.Now().UTC().Format(time.RFC3339))
	_, err = pc.Plain.Commit(ctx, gitrepo.CommitOpts{Message: msg})
	return err
}

// restoreSequential walks E's commits in topological, parent-before-child
// order, narrowing the sparse cone to exactly the files each commit
// touches, decrypting its manifest and content, and replaying it onto P
// with the original author, date and message recovered from the
// commitEnvelope embedded in E's commit message.
func (pc *Context) restoreSequential(ctx context.Context) error {
	log := events.FromContext(ctx)

	encHashes, err := pc.Enc.Log(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("log encrypted history: %w", err)
	}

	for i, encHash := range encHashes {
		from := emptyTreeHash
		if i > 0 {
			from = encHashes[i-1]
		}
		touched, err := pc.Enc.NameStatus(ctx, from, encHash)
		if err != nil {
			return fmt.Errorf("name-status for %s: %w", encHash, err)
		}

		manifestRelPath := findManifestPath(touched)
		cone := []string{"manifest/", selfCopyPattern}
		cone = append(cone, coneDirs(touchedPaths(touched))...)
		if err := pc.Enc.SparseCheckoutSet(ctx, cone); err != nil {
			return err
		}
		if err := pc.Enc.Checkout(ctx, encHash); err != nil {
			return err
		}

		rawMsg, err := pc.Enc.CommitMessage(ctx, encHash)
		if err != nil {
			return err
		}
		env, err := pc.decodeCommitEnvelope(ctx, rawMsg)
		if err != nil {
			log.WithField("commit", encHash).WithError(err).Warn("skipping commit with undecodable message, likely wrong password")
			continue
		}

		var manifestEntries []manifest.Entry
		if manifestRelPath != "" {
			manifestEntries, err = pc.decodeManifestAt(ctx, manifestRelPath)
			if err != nil {
				log.WithField("commit", encHash).WithError(err).Warn("skipping commit with undecodable manifest")
				continue
			}
		}
		byPlainPath := make(map[string]string, len(manifestEntries))
		for _, me := range manifestEntries {
			byPlainPath[me.PlainPath] = me.EncPath
		}

		var staged, removed []string
		for _, e := range env.Entries {
			switch e.Status[0] {
			case 'A', 'M', 'C', 'T':
				if err := pc.replayWrite(ctx, e.Path, byPlainPath); err != nil {
					return err
				}
				staged = append(staged, e.Path)
			case 'R':
				if err := pc.replayWrite(ctx, e.Path, byPlainPath); err != nil {
					return err
				}
				staged = append(staged, e.Path)
				removed = append(removed, e.RenameFrom)
			case 'D':
				removed = append(removed, e.Path)
			default:
				log.WithField("path", e.Path).WithField("status", e.Status).Warn("skipping unsupported entry during replay")
			}
		}

		if len(removed) > 0 {
			for _, p := range removed {
				_ = os.Remove(filepath.Join(pc.Plain.Dir, p))
			}
			if err := pc.Plain.Rm(ctx, removed...); err != nil {
				return err
			}
		}
		if len(staged) > 0 {
			if err := pc.Plain.Add(ctx, false, staged...); err != nil {
				return err
			}
		}

		newHash, err := pc.Plain.Commit(ctx, gitrepo.CommitOpts{
			Message: env.Message,
			Author:  env.Author,
			Date:    env.Date,
		})
		if err != nil {
			return fmt.Errorf("replay commit for %s: %w", encHash, err)
		}
		if newHash == "" {
			continue
		}
		if err := pc.State.Put(state.Record{
			PlainCommitHash: newHash,
			EncCommitHash:   encHash,
			ManifestPath:    manifestRelPath,
			MirroredAt:      time.Now(),
		}); err != nil {
			log.WithError(err).Warn("failed to update commit-index cache during replay")
		}
	}
	return nil
}

func (pc *Context) replayWrite(ctx context.Context, plainPath string, byPlainPath map[string]string) error {
	encPath, ok := byPlainPath[plainPath]
	if !ok {
		return fmt.Errorf("replay: no manifest entry for %s", plainPath)
	}
	return pc.decryptEntryToWorkTree(ctx, manifest.Entry{EncPath: encPath, PlainPath: plainPath})
}

func (pc *Context) decodeManifestAt(ctx context.Context, relPath string) ([]manifest.Entry, error) {
	cipherText, err := os.ReadFile(filepath.Join(pc.Enc.Dir, relPath))
	if err != nil {
		return nil, err
	}
	gz, err := pc.Cipher.Decrypt(ctx, "", cipherText)
	if err != nil {
		return nil, err
	}
	return manifest.DecodeFromStorage(gz)
}

func findManifestPath(entries []gitrepo.NameStatusEntry) string {
	for _, e := range entries {
		if strings.HasPrefix(e.Path, "manifest/") {
			return e.Path
		}
	}
	return ""
}

func touchedPaths(entries []gitrepo.NameStatusEntry) []string {
	var paths []string
	for _, e := range entries {
		if e.Path != "" {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// Reencrypt implements `myba reencrypt` (spec.md §4.10): disables E's
// sparse-checkout, wipes every tracked entry except the self-bootstrap
// copy, resets the commit-index cache, then walks P's history
// oldest-to-newest, checking out each commit and re-running the commit
// pipeline against newCipher/newPaths to rebuild E under the new
// password. P's original branch is always restored on return; E's
// original HEAD is restored only if reencryption fails partway, so a
// broken run never leaves E corrupted.
func (pc *Context) Reencrypt(ctx context.Context, newCipher cipher.Provider, newPaths *pathderive.Cache) (err error) {
	log := events.FromContext(ctx)

	origPlainBranch, berr := pc.Plain.CurrentBranch(ctx)
	if berr != nil {
		return fmt.Errorf("resolve plain branch: %w", berr)
	}
	origEncHead, eerr := pc.Enc.RevParse(ctx, "HEAD")
	if eerr != nil {
		origEncHead = ""
	}

	defer func() {
		if cerr := pc.Plain.Checkout(ctx, origPlainBranch); cerr != nil {
			log.WithError(cerr).Warn("failed to restore plain branch after reencrypt")
		}
		if err != nil && origEncHead != "" {
			if cerr := pc.Enc.Checkout(ctx, origEncHead); cerr != nil {
				log.WithError(cerr).Warn("failed to restore encrypted branch after failed reencrypt")
			}
		}
	}()

	if err = pc.Enc.SparseCheckoutDisable(ctx); err != nil {
		return err
	}

	if origEncHead != "" {
		tracked, terr := pc.Enc.LsTree(ctx, "HEAD")
		if terr != nil {
			err = terr
			return err
		}
		var toRemove []string
		for _, p := range tracked {
			if p != selfBootstrapPath {
				toRemove = append(toRemove, p)
			}
		}
		if len(toRemove) > 0 {
			if err = pc.Enc.Rm(ctx, toRemove...); err != nil {
				return err
			}
			if _, err = pc.Enc.Commit(ctx, gitrepo.CommitOpts{Message: "reencrypt: clear prior ciphertext"}); err != nil {
				return err
			}
		}
	}

	if err = pc.State.Reset(); err != nil {
		return err
	}

	shadow := &Context{
		Cfg:     pc.Cfg,
		Plain:   pc.Plain,
		Enc:     pc.Enc,
		Cipher:  newCipher,
		Paths:   newPaths,
		Pool:    pc.Pool,
		TTY:     pc.TTY,
		Cleanup: pc.Cleanup,
		State:   pc.State,
	}

	hashes, herr := pc.Plain.Log(ctx, "HEAD")
	if herr != nil {
		err = herr
		return err
	}

	for _, hash := range hashes {
		if err = pc.Plain.Checkout(ctx, hash); err != nil {
			return err
		}
		var out, errOut bytes.Buffer
		if _, err = shadow.Commit(ctx, &out, &errOut); err != nil {
			return err
		}
	}
	return nil
}
