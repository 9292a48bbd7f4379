package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/covgen/internal/config"
	"github.com/nao1215/covgen/internal/launcher"
	"github.com/nao1215/covgen/internal/toolchain"
)

// NewRunCmd creates the run command, the one-command entry point.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [repository-url]",
		Short: "Generate a coverage report and open it in the browser",
		Long: `Run prepares the covgen environment, generates a coverage report in a
child process and opens it in the default browser.

The environment directory (.covgen-env) is created on the first run and
reused afterwards. The toolchain is probed again on every run and recorded
in toolchain.yaml.

When the generator fails, run prints an error banner and exits with the
generator's exit code.

Examples:
  # Use repository_url from config.ini
  covgen run

  # Generate and open a report for a repository
  covgen run https://github.com/example/calc.git

  # Do not open the browser
  covgen run --no-browser https://github.com/example/calc.git`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().Bool("no-browser", false,
		"Do not open the report in the browser")
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Report directory")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: config.ini in current or XDG config directory)")
	cmd.Flags().String("env-dir", config.DefaultEnvDir,
		"Environment directory")
	cmd.Flags().Duration("open-delay", config.DefaultOpenDelay,
		"Wait before opening the browser")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	noBrowser, err := flags.GetBool("no-browser")
	if err != nil {
		return err
	}
	outputDir, err := flags.GetString("output-dir")
	if err != nil {
		return err
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return err
	}
	envDir, err := flags.GetString("env-dir")
	if err != nil {
		return err
	}
	delay, err := flags.GetDuration("open-delay")
	if err != nil {
		return err
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose, !stderrIsTerminal())

	file, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate the covgen executable: %w", err)
	}

	// The generator bounds its own commands; the child process itself is
	// only bounded by cancellation.
	runner := toolchain.NewExecRunner(0)
	env := launcher.NewEnvironment(envDir, runner,
		launcher.WithEnvironmentLogger(logger),
		launcher.WithVersion(getVersion()),
	)
	l := launcher.NewLauncher(runner, env, exe,
		launcher.WithLogger(logger),
		launcher.WithOutput(cmd.OutOrStdout()),
		launcher.WithOpenDelay(delay),
	)

	ctx, cancel := signalContext(logger)
	defer cancel()

	opts := launcher.Options{
		DefaultURL: file.RepositoryURL,
		ConfigPath: file.Path,
		OutputDir:  outputDir,
		NoBrowser:  noBrowser,
		Verbose:    verbose,
	}
	if len(args) == 1 {
		opts.URL = args[0]
	}
	return l.Run(ctx, opts)
}
