// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/config"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/store"
)

// NewMigrateCmd creates the migrate subcommand and its actions.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long:  `Apply, roll back, and inspect the embedded migrations against the PostgreSQL database.`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateDownCmd())
	cmd.AddCommand(newMigrateStatusCmd())
	cmd.AddCommand(newMigrateVersionCmd())
	cmd.AddCommand(newMigrateForceCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  runMigrateUp,
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}

	cmd.Printf("Applying %d migration(s)...\n", len(pending))
	if err := m.Up(); err != nil {
		return err
	}

	cmd.Println("Migrations applied")
	return nil
}

func newMigrateDownCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the most recent migration. With --all, roll back every applied
migration; this drops the users and sessions tables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateDown(cmd, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "roll back all migrations instead of one")

	return cmd
}

func runMigrateDown(cmd *cobra.Command, all bool) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if all {
		if err := m.Down(); err != nil {
			return err
		}
		cmd.Println("Rolled back all migrations")
		return nil
	}

	if err := m.Steps(-1); err != nil {
		return err
	}
	cmd.Println("Rolled back one migration")
	return nil
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE:  runMigrateStatus,
	}
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	applied, err := m.AppliedMigrations()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}

	cmd.Print(formatMigrationsTable(applied, pending))
	if version == 0 {
		cmd.Println("Database version: none")
	} else if dirty {
		cmd.Printf("Database version: %d (dirty)\n", version)
	} else {
		cmd.Printf("Database version: %d\n", version)
	}
	return nil
}

func newMigrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the current migration version",
		RunE:  runMigrateVersion,
	}
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		cmd.Println("No migrations applied")
		return nil
	}
	if dirty {
		cmd.Printf("Version: %d (%s, dirty)\n", version, migrationLabel(version))
		return nil
	}
	cmd.Printf("Version: %d (%s)\n", version, migrationLabel(version))
	return nil
}

func newMigrateForceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Force the migration version without running migrations",
		Long: `Overwrite the recorded migration version and clear the dirty flag. Use
after resolving a failed migration by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: runMigrateForce,
	}
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}

	url, err := databaseURL()
	if err != nil {
		return err
	}

	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Force(version); err != nil {
		return err
	}

	cmd.Printf("Forced version to %d\n", version)
	return nil
}

// parseForceVersion parses the version argument for migrate force.
func parseForceVersion(s string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(s, "%d", &version); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	return version, nil
}

// databaseURL resolves the database URL from the config file and the
// environment. Operator commands do not take a --database.url flag; the
// persistent --config flag and DATABASE_URL cover their use.
func databaseURL() (string, error) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("database URL is required: set DATABASE_URL or database.url in the config file")
	}
	return cfg.Database.URL, nil
}

// closeMigrator closes the migrator and logs instead of failing; commands
// report the primary operation's error.
func closeMigrator(m MigratorClient) {
	if err := m.Close(); err != nil {
		slog.Warn("error closing migrator", "error", err)
	}
}

// formatMigrationsTable renders one row per known migration.
func formatMigrationsTable(applied, pending []uint) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATUS")
	for _, v := range applied {
		_, _ = fmt.Fprintf(w, "%06d\t%s\tapplied\n", v, migrationLabel(v))
	}
	for _, v := range pending {
		_, _ = fmt.Fprintf(w, "%06d\t%s\tpending\n", v, migrationLabel(v))
	}
	_ = w.Flush()

	return string(buf)
}

// migrationLabel returns the human part of a migration name, or a dash
// when the embedded set does not contain the version.
func migrationLabel(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return "-"
	}
	return strings.TrimPrefix(name, fmt.Sprintf("%06d_", version))
}
