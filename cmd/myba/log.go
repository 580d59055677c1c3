package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log [revrange]",
	Short: "List plain-repo commit hashes, oldest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		revRange := "HEAD"
		if len(args) == 1 {
			revRange = args[0]
		}
		hashes, err := pc.Plain.Log(rootCtx, revRange)
		if err != nil {
			return err
		}
		for _, h := range hashes {
			fmt.Println(h)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
}
