package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/pipeline"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout (COMMIT | PATH...)",
	Short: "Check out a plain commit, an encrypted commit's manifests, or matching paths",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		kind, err := pc.Checkout(rootCtx, args)
		if err != nil {
			return err
		}
		switch kind {
		case pipeline.CheckoutPlainCommit:
			fmt.Println("checked out plain commit")
		case pipeline.CheckoutEncCommit:
			fmt.Println("checked out encrypted commit, manifests decrypted")
		case pipeline.CheckoutPathPatterns:
			fmt.Println("decrypted matching paths")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}
