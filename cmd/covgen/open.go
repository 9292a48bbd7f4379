package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/covgen/internal/launcher"
)

// NewOpenCmd creates the open command.
func NewOpenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open the latest coverage report in the browser",
		Long: `Open looks for a generated report and opens it in the default browser.

Reports are searched in this order:
  coverage_output_local/index.html
  coverage_output/index.html
  test_coverage_output/index.html

A directory given with --output-dir is searched first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outputDir, err := cmd.Flags().GetString("output-dir")
			if err != nil {
				return err
			}
			return launcher.NewOpener(launcher.Candidates(outputDir), cmd.OutOrStdout()).Open()
		},
	}

	cmd.Flags().StringP("output-dir", "o", "", "Report directory to search first")
	return cmd
}
