package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/remote"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reduce the encrypted repository back to a promisor clone",
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		return remote.New(pc).GC(rootCtx)
	},
}

func init() {
	rootCmd.AddCommand(gcCmd)
}
