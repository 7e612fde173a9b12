package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the workstation CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workstation",
		Short: "Personal workstation service",
		Long: `The personal workstation service: local account management with
bcrypt credentials and durable, revocable session tokens, backed by
PostgreSQL.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSweepCmd())
	cmd.AddCommand(NewAdminCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
