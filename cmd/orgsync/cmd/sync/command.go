// Package sync implements the sync command.
package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/internal/appcontext"
)

// Flags holds the sync command flags.
type Flags struct {
	Target      string
	DryRun      bool
	AutoApprove bool
	Refetch     bool
	Sequential  bool
	OutputDir   string
}

// NewCommand creates the sync command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Reconcile RuoYi with the Feishu directory",
		Args:    cobra.NoArgs,
		Long: `Sync brings RuoYi departments and users in line with Feishu.

Departments are reconciled first, parents before children, then users are
placed in their primary department. Records the sync did not create are
never touched, and departed users are disabled rather than deleted.

Without --yes the command first plans the run as a dry run, shows the
changes, and asks for confirmation before applying them. The plan and the
applied run work from the same CSV extracts.

Extracts are taken from Feishu when they are missing, with --refetch, or
with --yes; otherwise the extracts of the last fetch are used.`,
		Example: `  orgsync sync                     # Plan, confirm, then apply
  orgsync sync --dry-run           # Show what would change
  orgsync sync -y                  # Fetch and apply without prompting
  orgsync sync --target api        # Write through the RuoYi REST API
  orgsync sync --refetch           # Extract again before planning`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, flags, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.Target, "target", "", "target adapter: db or api (default from TARGET)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "plan changes without writing to the target")
	cmd.Flags().BoolVarP(&flags.AutoApprove, "yes", "y", false, "apply without asking for confirmation")
	cmd.Flags().BoolVar(&flags.Refetch, "refetch", false, "extract from Feishu even when extracts exist")
	cmd.Flags().BoolVar(&flags.Sequential, "sequential", false, "fetch department members one department at a time")
	cmd.Flags().StringVar(&flags.OutputDir, "output-dir", "", "directory for the CSV extracts (default from OUTPUT_DIR)")

	return cmd
}
