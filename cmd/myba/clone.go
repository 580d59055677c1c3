package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/remote"
)

var cloneCmd = &cobra.Command{
	Use:   "clone URL",
	Short: "Partial-clone an encrypted repository and decrypt its manifests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.EnsureDirectories(); err != nil {
			return err
		}
		if err := remote.Clone(rootCtx, args[0], cfg.EncryptedRepo()); err != nil {
			return fmt.Errorf("clone: %w", err)
		}

		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		return pc.RefreshManifests(rootCtx)
	},
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}
