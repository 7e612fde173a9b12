// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth/postgres"
)

// Default timeout for one-shot database commands.
const defaultCommandTimeout = 30 * time.Second

// sweepConfig holds configuration for the sweep command.
type sweepConfig struct {
	timeout time.Duration
}

// NewSweepCmd creates the sweep subcommand.
func NewSweepCmd() *cobra.Command {
	cfg := &sweepConfig{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired sessions",
		Long: `Deletes every expired session in one pass. The service performs the same
cleanup opportunistically after each login; this command is for operators
who want an explicit purge, for example before inspecting the sessions
table. It is safe to run at any time: live sessions are never touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSweep(cmd, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultCommandTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSweep(cmd *cobra.Command, cfg *sweepConfig) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	// Add timeout to prevent indefinite hangs
	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := connectDatabase(ctx, url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	sessions := postgres.NewSessionRepository(pool)
	deleted, err := sessions.DeleteExpired(ctx)
	if err != nil {
		return oops.Code("SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err)
	}

	if deleted == 0 {
		cmd.Println("No expired sessions")
		return nil
	}

	cmd.Printf("Deleted %d expired session(s)\n", deleted)
	slog.Info("expired sessions deleted", "count", deleted)
	return nil
}
