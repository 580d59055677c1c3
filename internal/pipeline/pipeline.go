// Package pipeline implements the commit/checkout/restore/reencrypt
// state machines (spec.md §4.8-§4.10, components C8/C9/C10): the core
// engineering of the tool, translating plain-repo history into
// encrypted-repo commits and back. Grounded on
// theMichaelB-obsync/internal/services/sync.Engine's orchestration shape
// (a struct wiring together the cipher, path deriver, storage and
// transport, driving a multi-phase reconciliation loop), generalized
// from a one-way vault sync onto a two-way dual-repository mirror.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheMichaelB/myba/internal/cipher"
	"github.com/TheMichaelB/myba/internal/cleanup"
	"github.com/TheMichaelB/myba/internal/config"
	"github.com/TheMichaelB/myba/internal/gitrepo"
	"github.com/TheMichaelB/myba/internal/pathderive"
	"github.com/TheMichaelB/myba/internal/state"
	"github.com/TheMichaelB/myba/internal/ttyio"
	"github.com/TheMichaelB/myba/internal/workerpool"
)

// markerName is the empty file `add` drops into a directory to mark it
// for recursive re-adding on every subsequent commit (spec.md §6).
const markerName = ".mybabackup"

// selfBootstrapPath is where the tool's own binary is staged into E on
// its first commit (spec.md §4.8's "self-bootstrap").
const selfBootstrapPath = ".myba-bootstrap/myba"

// selfCopyPattern is the sparse-checkout cone directory pattern covering
// selfBootstrapPath, kept alongside manifest/ in E's cone so the
// self-bootstrap copy is always materialized (spec.md §3). Mirrors
// gitrepo's own selfCopyPattern constant.
const selfCopyPattern = ".myba-bootstrap/"

// emptyTreeHash is git's well-known hash of the empty tree, used as the
// "from" side of a diff when there is no previously mirrored commit.
const emptyTreeHash = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// Context wires every component the pipeline drives.
type Context struct {
	Cfg     *config.Config
	Plain   *gitrepo.Repo
	Enc     *gitrepo.Repo
	Cipher  cipher.Provider
	Paths   *pathderive.Cache
	Pool    *workerpool.Pool
	TTY     *ttyio.Session
	Cleanup *cleanup.Stack
	State   state.Store
}

// New builds a Context from config, opening P and E and constructing
// the cipher/path-deriver/pool from the resolved password.
func New(ctx context.Context, cfg *config.Config, password string, tty *ttyio.Session, cs *cleanup.Stack, st state.Store) (*Context, error) {
	plain, err := gitrepo.OpenPlain(ctx, cfg.WorkTree, cfg.PlainRepo)
	if err != nil {
		return nil, err
	}
	enc, err := gitrepo.OpenEncrypted(ctx, cfg.EncryptedRepo())
	if err != nil {
		return nil, err
	}

	return &Context{
		Cfg:     cfg,
		Plain:   plain,
		Enc:     enc,
		Cipher:  cipher.New(cfg.UseGPG, password, cfg.KDFIters),
		Paths:   pathderive.NewCache(password),
		Pool:    workerpool.New(cfg.Workers()),
		TTY:     tty,
		Cleanup: cs,
		State:   st,
	}, nil
}

// ExpandMarkedDirs walks the work tree for directory markers and returns
// the directories that contain one, so `commit` can re-add them
// recursively before diffing (spec.md §6's "commit re-adds all
// directories containing such a marker").
func ExpandMarkedDirs(workTree string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(workTree, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == markerName {
			dirs = append(dirs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// coneDirs truncates enc-paths to their parent directories, the
// cone-mode requirement spec.md §4.9 calls out ("cone-mode requires
// directory prefixes").
func coneDirs(encPaths []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range encPaths {
		dir := p
		if idx := strings.LastIndex(p, "/"); idx >= 0 {
			dir = p[:idx]
		}
		if !seen[dir] {
			seen[dir] = true
			out = append(out, dir+"/")
		}
	}
	return out
}
