package main

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

var gitCmd = &cobra.Command{
	Use:                "git -- ARGS...",
	Short:              "Run a raw git command against the plain repository",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		return runGitPassthrough(pc.Plain.BaseArgs(), args)
	},
}

var gitEncCmd = &cobra.Command{
	Use:                "git_enc -- ARGS...",
	Short:              "Run a raw git command against the encrypted repository",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()
		return runGitPassthrough(pc.Enc.BaseArgs(), args)
	},
}

func runGitPassthrough(base, args []string) error {
	full := append(append([]string{}, base...), args...)
	cmd := exec.CommandContext(rootCtx, "git", full...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func init() {
	rootCmd.AddCommand(gitCmd)
	rootCmd.AddCommand(gitEncCmd)
}
