package cmd

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is overridden at startup from the embedded VERSION file.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "curator",
	Short:   "Curator media library importer",
	Long:    "Curator imports dumps of media files into a date-organized library,\ndeduplicating against everything imported before.",
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

// ApplyVersion re-applies Version to the root command after embedding.
func ApplyVersion() {
	rootCmd.Version = Version
}

// newLogger builds the stderr logger used by every subcommand.
func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: false,
		Prefix:          "curator",
	})
}
