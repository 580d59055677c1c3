package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add PATH...",
	Short: "Stage paths in the plain repository",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		for _, path := range args {
			info, err := os.Stat(filepath.Join(pc.Plain.Dir, path))
			if err != nil {
				return err
			}
			if info.IsDir() {
				marker := filepath.Join(pc.Plain.Dir, path, ".mybabackup")
				if err := os.WriteFile(marker, nil, 0o644); err != nil {
					return err
				}
			}
			if err := pc.Plain.Add(rootCtx, false, path); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
