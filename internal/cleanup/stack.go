// Package cleanup implements the LIFO deferred-closure chain spec.md §5
// requires: on SIGINT/SIGHUP/SIGTERM or a normal return, every registered
// cleanup fires in the reverse of its registration order, so that
// independent phases (throwaway working directories, restored branch
// tips, reinstated remotes) can each push their own handler without
// clobbering another phase's. Grounded on
// theMichaelB-obsync/cmd/obsync/sync.go's signal-to-context-cancel
// pattern, generalized from a single cancel func into an accumulating
// stack of arbitrary cleanups.
package cleanup

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/TheMichaelB/myba/internal/events"
)

// Stack accumulates cleanup closures and runs them LIFO, exactly once.
type Stack struct {
	mu    sync.Mutex
	funcs []func()
	ran   bool
}

// New creates an empty cleanup stack.
func New() *Stack {
	return &Stack{}
}

// Push registers fn to run during Run, ahead of anything already pushed.
func (s *Stack) Push(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs = append(s.funcs, fn)
}

// Run fires every registered cleanup in LIFO order. Safe to call more
// than once; only the first call has effect.
func (s *Stack) Run() {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return
	}
	s.ran = true
	funcs := s.funcs
	s.funcs = nil
	s.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		funcs[i]()
	}
}

// WatchSignals cancels ctx and runs s on SIGINT, SIGHUP, or SIGTERM,
// returning a context the caller should thread through the pipeline and
// a stop func to release the signal handler once the operation finishes
// normally.
func WatchSignals(ctx context.Context, s *Stack) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGHUP, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			events.FromContext(ctx).WithField("signal", sig.String()).Warn("interrupted, cleaning up")
			cancel()
			s.Run()
		case <-done:
		}
	}()

	return ctx, func() {
		close(done)
		signal.Stop(sigCh)
		cancel()
	}
}
