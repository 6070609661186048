package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"curator/internal"
)

var (
	executeFlag  bool
	moveFlag     bool
	workersFlag  int
	logLevelFlag string
	exifToolFlag bool
)

var importCmd = &cobra.Command{
	Use:   "import <source> <target>",
	Short: "Import media files into a date-organized library",
	Long: "Import scans the source for media files, plans a deduplicated,\n" +
		"date-organized layout under the target, and prints the plan.\n" +
		"Nothing is written unless --execute is given.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, target := args[0], args[1]

		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("source does not exist or is not a directory: %s", source)
		}

		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			conf.Workers = workersFlag
		}
		if cmd.Flags().Changed("log-level") {
			conf.LogLevel = logLevelFlag
		}
		if cmd.Flags().Changed("exiftool") {
			conf.UseExifTool = exifToolFlag
		}

		logger := newLogger(conf.LogLevel)
		return runImport(source, target, conf, executeFlag, moveFlag, logger)
	},
}

func runImport(source, target string, conf *internal.Config, execute, move bool, logger *log.Logger) error {
	engine, err := internal.NewEngine(internal.Options{
		Source:      source,
		Target:      target,
		Workers:     conf.Workers,
		Move:        move,
		UseExifTool: conf.UseExifTool,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	plan, summary, err := engine.BuildPlan(context.Background())
	if err != nil {
		return err
	}

	if !execute {
		for _, op := range plan.Ops {
			printOp(op, target, true, move)
		}
		fmt.Printf("[DRY RUN] %s\n", summary)
		fmt.Println("\nPass --execute to perform operations.")
		return nil
	}

	summary, err = engine.Execute(plan, func(op internal.PlannedOperation, opErr error) {
		if opErr != nil {
			return // warnings already logged by the executor
		}
		printOp(op, target, false, move)
	})
	if err != nil {
		fmt.Println(summary.String())
		if procErr, ok := err.(*internal.ProcessError); ok {
			if hint := procErr.Category.Suggestion(); hint != "" {
				logger.Error("import aborted", "hint", hint)
			}
		}
		return err
	}

	fmt.Println(summary.String())
	fmt.Printf("%s transferred\n", humanize.Bytes(uint64(summary.Bytes)))
	return nil
}

// printOp renders one per-operation console line: category keyword,
// source, destination or reason.
func printOp(op internal.PlannedOperation, target string, dryRun, move bool) {
	prefix := ""
	if dryRun {
		prefix = "[DRY RUN] "
	}
	opWord := "COPY"
	if move {
		opWord = "MOVE"
	}

	switch op.Category {
	case internal.OpSkip:
		fmt.Fprintf(os.Stderr, "SKIPPED: %s (%s)\n", op.Source, op.Reason)
	case internal.OpCorrupt:
		fmt.Fprintf(os.Stderr, "CORRUPT: %s (%s)\n", op.Source, op.Reason)
	case internal.OpDuplicate:
		if dest := op.Dest(); dest != "" {
			fmt.Fprintf(os.Stderr, "%sDUPLICATE %s -> %s (same as %s)\n",
				prefix, op.Source, filepath.Join(target, dest), op.Existing)
		} else {
			fmt.Fprintf(os.Stderr, "%sDUPLICATE %s (same as %s)\n", prefix, op.Source, op.Existing)
		}
	case internal.OpUndated:
		fmt.Fprintf(os.Stderr, "%sUNDATED %s -> %s\n",
			prefix, op.Source, filepath.Join(target, op.Dest()))
	default:
		fmt.Fprintf(os.Stderr, "%s%s %s -> %s\n",
			prefix, opWord, op.Source, filepath.Join(target, op.Dest()))
	}
}

func init() {
	importCmd.Flags().BoolVar(&executeFlag, "execute", false, "Actually perform file operations (default: dry-run)")
	importCmd.Flags().BoolVar(&moveFlag, "move", false, "Move files instead of copying")
	importCmd.Flags().IntVar(&workersFlag, "workers", 0, "Hash/metadata worker count (default: CPU count)")
	importCmd.Flags().StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn, error")
	importCmd.Flags().BoolVar(&exifToolFlag, "exiftool", true, "Use the exiftool binary for video container dates")

	rootCmd.AddCommand(importCmd)
}
