package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/remote"
)

var pushCmd = &cobra.Command{
	Use:   "push [remote]",
	Short: "Push the encrypted repository and reduce it back to a promisor clone",
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
		return remote.New(pc).Push(rootCtx, name)
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
