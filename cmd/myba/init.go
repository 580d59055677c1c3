package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the plain and encrypted repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		fmt.Printf("initialized plain repo at %s (work tree %s) and encrypted repo at %s\n",
			pc.Cfg.PlainRepo, pc.Cfg.WorkTree, pc.Cfg.EncryptedRepo())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
