package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/cleanup"
	"github.com/TheMichaelB/myba/internal/config"
	"github.com/TheMichaelB/myba/internal/events"
	"github.com/TheMichaelB/myba/internal/pipeline"
	"github.com/TheMichaelB/myba/internal/state"
	"github.com/TheMichaelB/myba/internal/ttyio"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *events.Logger

	cleanupStack *cleanup.Stack
	rootCtx      context.Context
	stopSignals  func()
)

var rootCmd = &cobra.Command{
	Use:           "myba",
	Short:         "Encrypted, version-controlled, distributed file backup",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRoot()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if stopSignals != nil {
			stopSignals()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a myba.json config file")
}

// Execute runs the root command, then fires every cleanup still on the
// cleanup stack, printing any returned error and setting a non-zero exit
// status.
func Execute() {
	err := rootCmd.Execute()
	if cleanupStack != nil {
		cleanupStack.Run()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "myba:", err)
		os.Exit(1)
	}
}

// initRoot loads configuration, builds the structured logger, and starts
// the signal-to-cancel watch (internal/cleanup), shared by every
// subcommand's PersistentPreRunE chain.
func initRoot() error {
	loaded, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}
	cfg = loaded

	l, err := events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = l

	cleanupStack = cleanup.New()
	rootCtx, stopSignals = cleanup.WatchSignals(context.Background(), cleanupStack)
	rootCtx = events.WithLogger(rootCtx, logger)
	return nil
}

// openTTY opens the controlling terminal for password/overwrite prompts,
// falling back to a non-interactive session (stdin/stderr) when no TTY is
// available, so scripted runs driven by PASSWORD/YES_OVERWRITE still work
// (spec.md §4.9/§5).
func openTTY() *ttyio.Session {
	tty, err := ttyio.Open()
	if err != nil {
		return ttyio.NewNonInteractive(os.Stdin, os.Stderr)
	}
	cleanupStack.Push(func() { _ = tty.Close() })
	return tty
}

// resolvePassword returns cfg.Password if set, else prompts on tty.
func resolvePassword(tty *ttyio.Session) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	return tty.ReadPassword("Password: ")
}

// newPipelineContext wires a pipeline.Context from the loaded config,
// opening P/E, resolving the password, and opening the commit-index
// cache, shared by every pipeline-driving subcommand.
func newPipelineContext(ctx context.Context) (*pipeline.Context, *ttyio.Session, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, nil, err
	}

	tty := openTTY()
	password, err := resolvePassword(tty)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve password: %w", err)
	}

	st, err := state.Open(cfg.PlainRepo, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open commit-index cache: %w", err)
	}
	cleanupStack.Push(func() { _ = st.Close() })

	pc, err := pipeline.New(ctx, cfg, password, tty, cleanupStack, st)
	if err != nil {
		return nil, nil, err
	}
	return pc, tty, nil
}
