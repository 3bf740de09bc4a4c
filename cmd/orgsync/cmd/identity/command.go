// Package identity implements the identity command.
package identity

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/internal/appcontext"
	"github.com/agentstation/orgsync/internal/cmd/output"
	"github.com/agentstation/orgsync/pkg/identity"
)

// Result is what the identity command prints.
type Result struct {
	Name           string `json:"name" yaml:"name"`
	Email          string `json:"email,omitempty" yaml:"email,omitempty"`
	LoginHandle    string `json:"login_handle" yaml:"login_handle"`
	CorrelationKey string `json:"correlation_key,omitempty" yaml:"correlation_key,omitempty"`
}

// NewCommand creates the identity command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	return &cobra.Command{
		Use:   "identity <name> [email]",
		Short: "Show the login handle and correlation key for a user",
		Args:  cobra.RangeArgs(1, 2),
		Long: `Identity prints the login handle a display name transliterates to and,
when an email is given, the correlation key stored with the account.

Handles shown here do not include the numeric suffix a sync adds when the
login name is already taken in the target.`,
		Example: `  orgsync identity 张三 zhang.san@example.com
  orgsync identity "Zhang San"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := Result{Name: args[0], LoginHandle: identity.LoginHandle(args[0])}
			if len(args) == 2 {
				r.Email = args[1]
				r.CorrelationKey = identity.CorrelationKey(args[1])
			}

			format := output.DetectFormat(app.OutputFormat())
			if format != output.FormatTable {
				return output.NewFormatter(format).Format(cmd.OutOrStdout(), r)
			}
			data := output.Data{
				Headers: []string{"Field", "Value"},
				Rows: [][]string{
					{"Name", r.Name},
					{"Login Handle", r.LoginHandle},
				},
			}
			if r.Email != "" {
				data.Rows = append(data.Rows, []string{"Email", r.Email}, []string{"Correlation Key", r.CorrelationKey})
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), data)
		},
	}
}
