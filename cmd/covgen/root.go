package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/covgen/internal/launcher"
)

// NewRootCmd creates the root command for covgen.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covgen",
		Short: "Coverage report generator for C/C++ repositories",
		Long: `covgen generates a line coverage report for a C/C++ Git repository.

It clones the repository, checks whether it can be built with Gcov
instrumentation, temporarily patches the build when it cannot (with help
from AWS Bedrock when configured), runs the tests and renders an HTML
report. Every temporary modification is rolled back afterwards.

Start with "covgen run <repository-url>".`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewGenerateCmd())
	cmd.AddCommand(NewOpenCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. A generator failure forwarded by the
// launcher exits with the generator's code.
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	var exitErr *launcher.ExitError
	if errors.As(err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}
