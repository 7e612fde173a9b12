// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth/postgres"
)

// readPassword is a seam so tests can supply passwords without a TTY.
var readPassword = term.ReadPassword

// adminConfig holds configuration shared by the admin subcommands.
type adminConfig struct {
	timeout time.Duration
}

// NewAdminCmd creates the admin subcommand and its actions.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative account operations",
		Long:  `Administrative operations against the users and sessions tables.`,
	}

	cmd.AddCommand(newAdminResetPasswordCmd())
	cmd.AddCommand(newAdminSessionsCmd())

	return cmd
}

func newAdminResetPasswordCmd() *cobra.Command {
	cfg := &adminConfig{}

	cmd := &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Reset an account's password",
		Long: `Resets the password for the named account and revokes all of its
sessions in the same transaction. The account must log in again with the
new password everywhere.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminResetPassword(cmd, args[0], cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultCommandTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runAdminResetPassword(cmd *cobra.Command, username string, cfg *adminConfig) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	password, err := promptNewPassword(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	pool, err := connectDatabase(ctx, url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	service, err := newAuthService(pool)
	if err != nil {
		return err
	}

	if err := service.ResetPassword(ctx, username, password); err != nil {
		return err
	}

	cmd.Printf("Password reset for %q; all sessions revoked\n", username)
	return nil
}

// promptNewPassword reads the new password twice without echo.
func promptNewPassword(cmd *cobra.Command) (string, error) {
	cmd.Print("New password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}

	cmd.Print("Confirm password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	cmd.Println()
	if err != nil {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
	}

	if string(first) != string(second) {
		return "", oops.Code("PASSWORD_MISMATCH").Errorf("passwords do not match")
	}
	return string(first), nil
}

func newAdminSessionsCmd() *cobra.Command {
	cfg := &adminConfig{}

	cmd := &cobra.Command{
		Use:   "sessions <username>",
		Short: "List an account's live sessions",
		Long: `Lists the live sessions for the named account, newest first. Tokens are
shown as an eight-character prefix; the full token never leaves the
database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminSessions(cmd, args[0], cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultCommandTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runAdminSessions(cmd *cobra.Command, username string, cfg *adminConfig) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	pool, err := connectDatabase(ctx, url)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	sessions := postgres.NewSessionRepository(pool)

	user, err := users.GetByUsername(ctx, username)
	if errors.Is(err, auth.ErrNotFound) {
		return oops.Code("USER_NOT_FOUND").Errorf("no account named %q", username)
	}
	if err != nil {
		return err
	}

	list, err := sessions.ListByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		cmd.Printf("No live sessions for %q\n", username)
		return nil
	}

	cmd.Print(formatSessionsTable(list))
	return nil
}

// formatSessionsTable renders live sessions with truncated tokens.
func formatSessionsTable(sessions []*auth.Session) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "TOKEN\tCREATED\tEXPIRES")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(w, "%s...\t%s\t%s\n",
			tokenPrefix(s.Token),
			s.CreatedAt.Format(time.RFC3339),
			s.ExpiresAt.Format(time.RFC3339),
		)
	}
	_ = w.Flush()

	return string(buf)
}

// tokenPrefix returns the first eight characters of a token.
func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
