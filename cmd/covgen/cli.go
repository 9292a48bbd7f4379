package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nao1215/covgen/internal/config"
	covlog "github.com/nao1215/covgen/internal/log"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the credential-masking logger on stderr. jsonLogs
// selects JSON records, which the launcher uses when stderr is redirected.
func setupLogger(verbose, jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return covlog.NewSecureJSONLogger(os.Stderr, verbose)
	}
	return covlog.NewSecureLogger(os.Stderr, verbose)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. Cleanup
// finalizers still run after cancellation.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func stdinIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

func stderrIsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// loadConfigFile loads config.ini and the .env file beside it.
// If the user explicitly specified a config file path, a missing file is
// an error. Otherwise defaults are used.
func loadConfigFile(explicitPath string) (*config.File, error) {
	file, err := config.Resolve(explicitPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// AWS credentials in .env must be visible before Bedrock is set up.
	envPath := config.DefaultDotEnvFile
	if file.Path != "" {
		envPath = filepath.Join(filepath.Dir(file.Path), config.DefaultDotEnvFile)
	}
	if err := config.LoadDotEnv(envPath); err != nil {
		return nil, err
	}
	return file, nil
}
