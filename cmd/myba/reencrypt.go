package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/cipher"
	"github.com/TheMichaelB/myba/internal/pathderive"
)

var reencryptCmd = &cobra.Command{
	Use:   "reencrypt",
	Short: "Rebuild the encrypted repository under a new password",
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		newPassword, err := tty.ReadPassword("New password: ")
		if err != nil {
			return fmt.Errorf("read new password: %w", err)
		}
		confirm, err := tty.ReadPassword("Confirm new password: ")
		if err != nil {
			return fmt.Errorf("read new password confirmation: %w", err)
		}
		if newPassword != confirm {
			return fmt.Errorf("passwords did not match")
		}

		newCipher := cipher.New(cfg.UseGPG, newPassword, cfg.KDFIters)
		newPaths := pathderive.NewCache(newPassword)
		return pc.Reencrypt(rootCtx, newCipher, newPaths)
	},
}

func init() {
	rootCmd.AddCommand(reencryptCmd)
}
