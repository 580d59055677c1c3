package main

import "github.com/spf13/cobra"

var rmCmd = &cobra.Command{
	Use:   "rm PATH...",
	Short: "Remove paths from the plain repository",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		return pc.Plain.Rm(rootCtx, args...)
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
