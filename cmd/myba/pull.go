package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/remote"
)

var pullCmd = &cobra.Command{
	Use:   "pull [remote]",
	Short: "Pull the encrypted repository and refresh decrypted manifests",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		return remote.New(pc).Pull(rootCtx, name)
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
