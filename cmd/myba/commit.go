package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/myba/internal/gitrepo"
	"github.com/TheMichaelB/myba/internal/pipeline"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit staged changes to P and mirror them into E",
	RunE: func(cmd *cobra.Command, args []string) error {
		pc, tty, err := newPipelineContext(rootCtx)
		if err != nil {
			return err
		}
		defer tty.Close()

		dirs, err := pipeline.ExpandMarkedDirs(pc.Plain.Dir)
		if err != nil {
			return err
		}
		if len(dirs) > 0 {
			if err := pc.Plain.Add(rootCtx, false, dirs...); err != nil {
				return err
			}
		}

		msg := commitMessage
		if msg == "" {
			msg = "commit"
		}
		plainHash, err := pc.Plain.Commit(rootCtx, gitrepo.CommitOpts{Message: msg})
		if err != nil {
			return fmt.Errorf("commit plain repo: %w", err)
		}
		if plainHash == "" {
			fmt.Println("nothing to commit")
			return nil
		}

		var out, errOut bytes.Buffer
		encHash, err := pc.Commit(rootCtx, &out, &errOut)
		if err != nil {
			os.Stdout.Write(out.Bytes())
			os.Stderr.Write(errOut.Bytes())
			return fmt.Errorf("mirror commit: %w", err)
		}
		os.Stdout.Write(out.Bytes())
		os.Stderr.Write(errOut.Bytes())
		fmt.Printf("plain %s -> encrypted %s\n", plainHash, encHash)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	rootCmd.AddCommand(commitCmd)
}
