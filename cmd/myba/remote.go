package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/remote"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Manage remotes registered on the encrypted repository",
}

var remoteAddCmd = &cobra.Command{
	Use:   "add NAME URL",
	Short: "Register a remote as a blob:none promisor on the encrypted repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		return remote.New(pc).Add(rootCtx, args[0], args[1])
	},
}

func init() {
	remoteCmd.AddCommand(remoteAddCmd)
	rootCmd.AddCommand(remoteCmd)
}
