package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsFilesCmd = &cobra.Command{
	Use:   "ls-files [rev]",
	Short: "List paths tracked in the plain repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		rev := "HEAD"
		if len(args) == 1 {
			rev = args[0]
		}
		paths, err := pc.Plain.LsTree(rootCtx, rev)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsFilesCmd)
}
