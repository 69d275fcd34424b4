package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptcheck/promptcheck/internal/version"
)

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errTestsFailed) {
			// The run command already printed the tally.
			osExit(1)
			return
		}
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "promptcheck",
		Short:         "Declarative prompt evaluations against LLM providers",
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(verbose)
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "log engine progress to stderr")

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	return root
}

func configureLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
