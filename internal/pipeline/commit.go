package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/TheMichaelB/myba/internal/compress"
	"github.com/TheMichaelB/myba/internal/events"
	"github.com/TheMichaelB/myba/internal/gitrepo"
	"github.com/TheMichaelB/myba/internal/manifest"
	"github.com/TheMichaelB/myba/internal/state"
	"github.com/TheMichaelB/myba/internal/workerpool"
)

// plan is the synchronously-computed outcome of classifying one
// name-status entry: which enc_paths to write/remove and whether it
// contributes a manifest row. Every field here is a pure function of the
// entry and the password-bound path deriver, so it can be computed before
// any encryption work runs.
type plan struct {
	entry gitrepo.NameStatusEntry

	writePath string // plain path whose content must be (re-)encrypted, "" if none
	encPath   string // enc path to write writePath's ciphertext to

	removeEncPaths []string // enc paths to drop from E (old path of a rename, or a straight delete)

	manifestEntry  *manifest.Entry // non-nil if this entry contributes a manifest row
	untrackPattern string          // non-empty: best-effort LFSUntrack this pattern
	skipped        string          // non-empty: reason this entry was skipped (U, unrecognized status)
}

func (pc *Context) planEntry(e gitrepo.NameStatusEntry) plan {
	p := plan{entry: e}
	status := e.Status
	if len(status) == 0 {
		p.skipped = "empty status"
		return p
	}

	switch status[0] {
	case 'A', 'M':
		p.writePath = e.Path
		p.encPath = pc.Paths.EncPath(e.Path)
		p.manifestEntry = &manifest.Entry{EncPath: p.encPath, PlainPath: e.Path}

	case 'R':
		p.writePath = e.Path
		p.encPath = pc.Paths.EncPath(e.Path)
		p.manifestEntry = &manifest.Entry{EncPath: p.encPath, PlainPath: e.Path}
		if e.RenameFrom != "" {
			oldEnc := pc.Paths.EncPath(e.RenameFrom)
			p.removeEncPaths = append(p.removeEncPaths, oldEnc)
			p.untrackPattern = oldEnc
		}

	case 'C':
		p.writePath = e.Path
		p.encPath = pc.Paths.EncPath(e.Path)
		p.manifestEntry = &manifest.Entry{EncPath: p.encPath, PlainPath: e.Path}

	case 'D':
		encPath := pc.Paths.EncPath(e.Path)
		p.removeEncPaths = append(p.removeEncPaths, encPath)
		p.untrackPattern = encPath

	case 'T':
		// A regular<->symlink/submodule type change. Treat the common case
		// (now a regular file) like a modify; anything else is best-effort.
		info, err := os.Lstat(filepath.Join(pc.Plain.Dir, e.Path))
		if err == nil && info.Mode().IsRegular() {
			p.writePath = e.Path
			p.encPath = pc.Paths.EncPath(e.Path)
			p.manifestEntry = &manifest.Entry{EncPath: p.encPath, PlainPath: e.Path}
		} else {
			p.skipped = "type change to non-regular file"
		}

	case 'U':
		p.skipped = "unmerged path"

	default:
		p.skipped = fmt.Sprintf("unrecognized status %q", status)
	}
	return p
}

// encryptJob returns the workerpool.Job that encrypts and writes one
// plan's content blob into E's work tree, nil if the plan has nothing to
// write (a pure delete).
func (pc *Context) encryptJob(ctx context.Context, p plan) *workerpool.Job {
	if p.writePath == "" {
		return nil
	}
	return &workerpool.Job{
		Label: p.writePath,
		Run: func(ctx context.Context) ([]byte, []byte, error) {
			raw, err := os.ReadFile(filepath.Join(pc.Plain.Dir, p.writePath))
			if err != nil {
				return nil, nil, fmt.Errorf("read %s: %w", p.writePath, err)
			}
			body, err := compress.EncodeBlob(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("compress %s: %w", p.writePath, err)
			}
			cipherText, err := pc.Cipher.Encrypt(ctx, p.writePath, body)
			if err != nil {
				return nil, nil, fmt.Errorf("encrypt %s: %w", p.writePath, err)
			}

			dst := filepath.Join(pc.Enc.Dir, p.encPath)
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return nil, nil, fmt.Errorf("mkdir for %s: %w", p.writePath, err)
			}
			if err := os.WriteFile(dst, cipherText, 0o644); err != nil {
				return nil, nil, fmt.Errorf("write %s: %w", p.writePath, err)
			}
			return []byte(fmt.Sprintf("encrypted %s -> %s\n", p.writePath, p.encPath)), nil, nil
		},
	}
}

// Commit mirrors every plain commit between the last mirrored commit and
// P's current HEAD into a single new commit on E (spec.md §4.8, C8): it
// encrypts touched content in parallel, mutates E's tree and LFS tracking
// serially, materializes the commit's manifest on both sides, and records
// the mirror in the commit-index cache.
//
// Commit assumes the caller (the `commit` CLI command) has already
// committed the staged change to P; it never stages or commits to P
// itself.
func (pc *Context) Commit(ctx context.Context, out, errOut *bytes.Buffer) (string, error) {
	log := events.FromContext(ctx)

	plainHead, err := pc.Plain.RevParse(ctx, "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve plain HEAD: %w", err)
	}

	from := emptyTreeHash
	if rec, err := pc.State.Latest(); err == nil && rec != nil {
		if rec.PlainCommitHash == plainHead {
			log.Debug("nothing to mirror, plain HEAD already recorded")
			return "", nil
		}
		from = rec.PlainCommitHash
	}

	entries, err := pc.Plain.NameStatus(ctx, from, plainHead)
	if err != nil {
		return "", fmt.Errorf("diff plain history %s..%s: %w", from, plainHead, err)
	}

	firstCommit := false
	if _, err := pc.Enc.RevParse(ctx, "HEAD"); err != nil {
		firstCommit = true
	}

	if len(entries) == 0 && !firstCommit {
		log.Debug("no name-status entries between mirrored commits")
		return "", nil
	}

	plans := make([]plan, 0, len(entries))
	for _, e := range entries {
		p := pc.planEntry(e)
		if p.skipped != "" {
			log.WithField("path", e.Path).WithField("reason", p.skipped).Warn("skipping entry")
			continue
		}
		plans = append(plans, p)
	}

	jobs := make([]workerpool.Job, 0, len(plans))
	for _, p := range plans {
		if j := pc.encryptJob(ctx, p); j != nil {
			jobs = append(jobs, *j)
		}
	}

	snaps, err := pc.Enc.RemoveAllRemotes(ctx)
	if err != nil {
		return "", fmt.Errorf("hide remotes: %w", err)
	}
	defer func() {
		if rerr := pc.Enc.RestoreRemotes(ctx, snaps); rerr != nil {
			log.WithError(rerr).Warn("failed to restore remotes")
		}
	}()

	if firstCommit {
		if err := pc.stageSelfBootstrap(); err != nil {
			return "", fmt.Errorf("stage self-bootstrap copy: %w", err)
		}
	}

	if _, err := pc.Pool.Run(ctx, jobs, out, errOut); err != nil {
		return "", fmt.Errorf("encrypt phase: %w", err)
	}

	var addPaths, rmPaths []string
	var manifestEntries []manifest.Entry
	if firstCommit {
		addPaths = append(addPaths, selfBootstrapPath)
	}
	for _, p := range plans {
		if p.encPath != "" {
			addPaths = append(addPaths, p.encPath)
		}
		rmPaths = append(rmPaths, p.removeEncPaths...)
		if p.manifestEntry != nil {
			manifestEntries = append(manifestEntries, *p.manifestEntry)
		}
		if p.untrackPattern != "" {
			if err := pc.Enc.LFSUntrack(ctx, p.untrackPattern); err != nil {
				log.WithField("pattern", p.untrackPattern).WithError(err).Debug("lfs untrack failed, ignoring")
			}
		}
	}

	if err := pc.Enc.Rm(ctx, rmPaths...); err != nil {
		return "", fmt.Errorf("remove stale enc paths: %w", err)
	}

	// LFS tracking must be staged before the oversized blob itself: git's
	// LFS clean filter only converts a blob to a pointer at `git add` time,
	// so tracking a pattern after the blob is already staged as a normal
	// object does not retroactively convert it.
	if err := pc.promoteLargeBlobs(ctx, plans); err != nil {
		return "", fmt.Errorf("lfs promotion: %w", err)
	}
	if err := pc.Enc.Add(ctx, true, addPaths...); err != nil {
		return "", fmt.Errorf("stage enc paths: %w", err)
	}

	manifestPath, err := pc.materializeManifest(ctx, plainHead, manifestEntries)
	if err != nil {
		return "", fmt.Errorf("materialize manifest: %w", err)
	}

	msg, err := pc.buildCommitMessage(ctx, plainHead, entries)
	if err != nil {
		return "", fmt.Errorf("build commit message: %w", err)
	}

	encHash, err := pc.Enc.Commit(ctx, gitrepo.CommitOpts{Message: msg})
	if err != nil {
		return "", fmt.Errorf("commit encrypted repo: %w", err)
	}
	if encHash == "" {
		log.Debug("encrypted repo had nothing staged, no commit created")
		return "", nil
	}

	if err := pc.State.Put(state.Record{
		PlainCommitHash: plainHead,
		EncCommitHash:   encHash,
		ManifestPath:    manifestPath,
		MirroredAt:      time.Now(),
	}); err != nil {
		log.WithError(err).Warn("failed to update commit-index cache")
	}

	return encHash, nil
}

// stageSelfBootstrap copies the running binary into E's work tree at
// selfBootstrapPath, so a bare clone of E carries a copy of the tool
// capable of decrypting it (spec.md §3's self-bootstrap rule).
func (pc *Context) stageSelfBootstrap() error {
	self, err := os.Executable()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(self)
	if err != nil {
		return err
	}
	dst := filepath.Join(pc.Enc.Dir, selfBootstrapPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o755)
}

// promoteLargeBlobs LFS-tracks any just-written enc path whose ciphertext
// exceeds the configured threshold (spec.md §4.8's LFS promotion rule).
func (pc *Context) promoteLargeBlobs(ctx context.Context, plans []plan) error {
	for _, p := range plans {
		if p.encPath == "" {
			continue
		}
		info, err := os.Stat(filepath.Join(pc.Enc.Dir, p.encPath))
		if err != nil {
			return err
		}
		if info.Size() > pc.Cfg.LFSThreshold {
			if err := pc.Enc.LFSTrack(ctx, p.encPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// materializeManifest writes the plaintext manifest under P's manifest
// mirror and its encrypted form under E, staging the latter for the
// upcoming commit. Returns E's manifest path relative to its work tree, or
// "" if entries is empty: a metadata-only commit (e.g. pure deletes) stages
// no manifest file at all (spec.md §8).
func (pc *Context) materializeManifest(ctx context.Context, plainHead string, entries []manifest.Entry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	plainManifestDir := pc.Cfg.ManifestDir()
	if err := os.MkdirAll(plainManifestDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(plainManifestDir, plainHead), manifest.Encode(entries), 0o644); err != nil {
		return "", err
	}

	gz, err := manifest.EncodeForStorage(entries)
	if err != nil {
		return "", err
	}
	cipherText, err := pc.Cipher.Encrypt(ctx, "", gz)
	if err != nil {
		return "", err
	}

	relPath := filepath.Join("manifest", plainHead)
	dst := filepath.Join(pc.Enc.Dir, relPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(dst, cipherText, 0o644); err != nil {
		return "", err
	}
	if err := pc.Enc.Add(ctx, true, relPath); err != nil {
		return "", err
	}
	return relPath, nil
}

// buildCommitMessage recovers P's original author/date/message and pairs
// it with the name-status listing into an encoded commitEnvelope, the
// text stored as E's commit message (spec.md §4.8).
func (pc *Context) buildCommitMessage(ctx context.Context, plainHead string, entries []gitrepo.NameStatusEntry) (string, error) {
	author, date, message, err := pc.Plain.CommitMeta(ctx, plainHead)
	if err != nil {
		return "", err
	}
	return pc.encodeCommitEnvelope(ctx, commitEnvelope{
		Author:  author,
		Date:    date,
		Message: message,
		Entries: entries,
	})
}
