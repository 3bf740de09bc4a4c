package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/orgsync/cmd/orgsync/cmd/fetch"
	"github.com/agentstation/orgsync/cmd/orgsync/cmd/identity"
	"github.com/agentstation/orgsync/cmd/orgsync/cmd/sync"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(a.CreateFetchCommand())
	rootCmd.AddCommand(a.CreateSyncCommand())

	// Utility commands
	rootCmd.AddCommand(a.CreateIdentityCommand())
	rootCmd.AddCommand(a.CreateVersionCommand())
}

// CreateFetchCommand creates the fetch command with app dependencies.
func (a *App) CreateFetchCommand() *cobra.Command {
	return fetch.NewCommand(a)
}

// CreateSyncCommand creates the sync command with app dependencies.
func (a *App) CreateSyncCommand() *cobra.Command {
	return sync.NewCommand(a)
}

// CreateIdentityCommand creates the identity command with app dependencies.
func (a *App) CreateIdentityCommand() *cobra.Command {
	return identity.NewCommand(a)
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("orgsync %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
