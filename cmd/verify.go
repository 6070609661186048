package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"curator/internal"
)

var verifyLogLevel string

var verifyCmd = &cobra.Command{
	Use:   "verify <target>",
	Short: "Re-hash a library and report files that drifted from their manifests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("target does not exist or is not a directory: %s", target)
		}

		logger := newLogger(verifyLogLevel)
		res, err := internal.VerifyTree(target, logger)
		if err != nil {
			return err
		}

		for _, issue := range res.Issues {
			fmt.Fprintf(os.Stderr, "PROBLEM: %s (%s)\n", issue.Path, issue.Problem)
		}
		fmt.Printf("%d checked, %d missing, %d mismatched\n", res.Checked, res.Missing, res.Mismatched)

		if res.Missing+res.Mismatched > 0 {
			return fmt.Errorf("%d files failed verification", res.Missing+res.Mismatched)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyLogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(verifyCmd)
}
