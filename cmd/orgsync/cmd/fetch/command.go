// Package fetch implements the fetch command.
package fetch

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/cmd/output"
	"github.com/agentstation/orgsync/pkg/errors"
	"github.com/agentstation/orgsync/pkg/logging"
)

// NewCommand creates the fetch command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	var (
		sequential bool
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:     "fetch",
		GroupID: "core",
		Short:   "Extract the Feishu directory into CSV files",
		Args:    cobra.NoArgs,
		Long: `Fetch extracts the Feishu department tree and member list and writes
them to feishu_departments.csv and feishu_users.csv in the output directory.

The extraction is verified against the organization's member count. When
the totals differ nothing is written and any earlier extracts are removed,
so a later sync cannot work from incomplete data.`,
		Example: `  orgsync fetch                    # Extract with concurrent member fetching
  orgsync fetch --sequential       # Fetch members one department at a time
  orgsync fetch -o json            # Print statistics as JSON`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := app.Settings()
			if cmd.Flags().Changed("sequential") {
				settings.Sequential = sequential
			}
			if outputDir != "" {
				settings.OutputDir = outputDir
			}
			return Execute(cmd.Context(), app, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&sequential, "sequential", false, "fetch department members one department at a time")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the CSV extracts (default from OUTPUT_DIR)")

	return cmd
}

// Execute extracts the directory and prints the extraction statistics.
func Execute(ctx context.Context, app appcontext.Interface, w io.Writer) error {
	ctx = logging.WithLogger(ctx, app.Logger())
	client, err := app.Client(ctx, false)
	if err != nil {
		return &errors.ProcessError{Operation: "configure source", Command: "fetch", Err: err}
	}

	ex, err := client.Fetch(ctx)
	if err != nil {
		return &errors.ProcessError{Operation: "fetch directory", Command: "fetch", Err: err}
	}

	format := output.DetectFormat(app.OutputFormat())
	if format != output.FormatTable {
		return output.NewFormatter(format).Format(w, ex)
	}

	if !app.Quiet() && ex.TenantName != "" {
		fmt.Fprintf(w, "Tenant: %s\n\n", ex.TenantName)
	}
	if err := output.NewFormatter(format).Format(w, output.ExtractToTableData(ex.Stats)); err != nil {
		return err
	}
	if !app.Quiet() {
		fmt.Fprintf(w, "\nExtracts written to %s\n", app.Settings().OutputDir)
	}
	return nil
}
