package main

import (
	"github.com/spf13/cobra"
)

var decryptSquash bool

var decryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Rebuild the plain repository from the encrypted repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		return pc.Restore(rootCtx, decryptSquash)
	},
}

func init() {
	decryptCmd.Flags().BoolVar(&decryptSquash, "squash", false, "restore only the union of current files, discarding history")
	rootCmd.AddCommand(decryptCmd)
}
