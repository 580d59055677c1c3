// Package remote implements the push/pull/clone/gc orchestrator (spec.md
// §4.11, component C11): thin command-surface glue over the gitrepo
// primitives and the pipeline's manifest-decryption step, grounded on
// theMichaelB-obsync/internal/services/sync.Engine's top-level
// Push/Pull-shaped entry points generalized from a vault sync onto a
// remote-git mirror.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/TheMichaelB/myba/internal/events"
	"github.com/TheMichaelB/myba/internal/gitrepo"
	"github.com/TheMichaelB/myba/internal/models"
	"github.com/TheMichaelB/myba/internal/pipeline"
)

// gcQuiesceDelay is the pause between push completion and GC, giving the
// VCS's own background gc a moment to quiesce before this tool starts
// rewriting pack files underneath it (spec.md §5).
const gcQuiesceDelay = 200 * time.Millisecond

// Orchestrator wires E's VCS facade and the pipeline's manifest-decrypt
// step into the remote-facing subcommands.
type Orchestrator struct {
	Enc      *gitrepo.Repo
	Pipeline *pipeline.Context
}

// New builds an Orchestrator from a pipeline.Context, reusing its E repo.
func New(pc *pipeline.Context) *Orchestrator {
	return &Orchestrator{Enc: pc.Enc, Pipeline: pc}
}

// Add registers a new remote on E (spec.md §4.11's `remote add`).
func (o *Orchestrator) Add(ctx context.Context, name, url string) error {
	return o.Enc.RemoteAdd(ctx, name, url)
}

// Push pushes to name, or to every registered remote if name is empty,
// then refetches promisor state and runs gc, per spec.md §4.11's
// `push [remote]` sequence.
func (o *Orchestrator) Push(ctx context.Context, name string) error {
	log := events.FromContext(ctx)

	names, err := o.targetRemotes(ctx, name)
	if err != nil {
		return err
	}
	for _, n := range names {
		log.WithField("remote", n).Info("pushing")
		if err := o.Enc.Push(ctx, n); err != nil {
			return fmt.Errorf("push %s: %w", n, err)
		}
	}
	if err := o.Enc.Fetch(ctx, "", true); err != nil {
		return fmt.Errorf("refetch promisor state: %w", err)
	}

	select {
	case <-time.After(gcQuiesceDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return o.GC(ctx)
}

// Pull pulls from name (or E's default remote if empty) and refreshes
// decrypted manifests, per spec.md §4.11's `pull [remote]`.
func (o *Orchestrator) Pull(ctx context.Context, name string) error {
	if err := o.Enc.Pull(ctx, name); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return o.Pipeline.RefreshManifests(ctx)
}

// GC reduces E's sparse cone to manifest/ and converts local packfiles
// into promisor markers, per spec.md §4.11's `gc`.
func (o *Orchestrator) GC(ctx context.Context) error {
	return o.Enc.GC(ctx)
}

// Clone partial-clones url into dir (spec.md §4.11's `clone url`). It
// does not set up P or decrypt anything: the caller opens P afterward and
// calls (*pipeline.Context).RefreshManifests once a password has been
// collected, since Clone itself has no access to the cipher.
func Clone(ctx context.Context, url, dir string) error {
	return gitrepo.Clone(ctx, url, dir)
}

func (o *Orchestrator) targetRemotes(ctx context.Context, name string) ([]string, error) {
	if name != "" {
		return []string{name}, nil
	}
	snaps, err := o.Enc.Remotes(ctx)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, models.ErrNoSuchRemote
	}
	names := make([]string, len(snaps))
	for i, s := range snaps {
		names[i] = s.Name
	}
	return names, nil
}
