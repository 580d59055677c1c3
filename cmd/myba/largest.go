package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var largestN int

var largestCmd = &cobra.Command{
	Use:   "largest",
	Short: "List the largest tracked blobs, to help tune GIT_LFS_THRESH",
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		blobs, err := pc.Plain.LargestBlobs(rootCtx, largestN)
		if err != nil {
			return err
		}
		for _, b := range blobs {
			fmt.Printf("%12d  %s\n", b.Size, b.Path)
		}
		return nil
	},
}

func init() {
	largestCmd.Flags().IntVarP(&largestN, "n", "n", 20, "number of blobs to list")
	rootCmd.AddCommand(largestCmd)
}
