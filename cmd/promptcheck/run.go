package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/promptcheck/promptcheck/internal/config"
	"github.com/promptcheck/promptcheck/internal/runner"
	"github.com/promptcheck/promptcheck/internal/testcase"
)

// errTestsFailed signals a completed run with at least one failing test
// case. main exits 1 without printing it since the tally already went to
// stdout.
var errTestsFailed = errors.New("promptcheck: tests failed")

const defaultTestsDir = "tests"

type runOptions struct {
	configPath string
	outputDir  string
	tags       []string
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Execute test cases and write a JSON report",
		Long: `Execute test cases from YAML files or directories and write a JSON report.

Without arguments, run looks for a "tests" directory in the working
directory. Directories are searched recursively for .yaml and .yml files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", ".", "directory holding "+config.DefaultFileName+", or a config file path")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", ".", "directory the run report is written to")
	cmd.Flags().StringSliceVar(&opts.tags, "tags", nil, "only run test cases carrying at least one of these tags")

	return cmd
}

func runEval(cmd *cobra.Command, args []string, opts *runOptions) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	paths := args
	if len(paths) == 0 {
		if _, err := os.Stat(defaultTestsDir); err != nil {
			_, _ = fmt.Fprintf(out, "Default test directory %q not found. Pass test files as arguments or scaffold one with 'promptcheck init'.\n", defaultTestsDir)
			return nil
		}
		paths = []string{defaultTestsDir}
	}

	files, err := testcase.Discover(paths)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(out, "No test files found to execute.")
		return nil
	}

	var cases []testcase.TestCase
	for _, file := range files {
		loaded, err := testcase.LoadFile(file)
		if err != nil {
			_, _ = fmt.Fprintf(out, "Warning: skipping %s: %v\n", file, err)
			continue
		}
		cases = append(cases, loaded...)
	}
	loadedCount := len(cases)
	cases = testcase.FilterByTags(cases, opts.tags)
	if len(cases) == 0 {
		if loadedCount > 0 {
			return errors.New("run: no test cases match the requested tags")
		}
		return errors.New("run: no valid test cases were loaded")
	}

	_, _ = fmt.Fprintf(out, "Executing %d test case(s) from %d file(s)\n", len(cases), len(files))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report := runner.Execute(ctx, cfg, cases)

	path, err := writeReport(opts.outputDir, report)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Run results saved to: %s\n", path)
	_, _ = fmt.Fprintf(out, "Run complete: %d/%d passed (%d failed)\n",
		report.TotalTestsPassed, report.TotalTestsExecuted, report.TotalTestsFailed)

	if report.TotalTestsFailed > 0 {
		return errTestsFailed
	}
	return nil
}
