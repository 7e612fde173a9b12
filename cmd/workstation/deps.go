// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth/postgres"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/config"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/observability"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// ConfigLoader resolves the effective configuration.
	// Default: config.Load
	ConfigLoader func(path string, flags *pflag.FlagSet) (config.Config, error)

	// DatabaseConnector opens a connection pool from a database URL.
	// Default: store.Connect
	DatabaseConnector func(ctx context.Context, url string) (Database, error)

	// MigratorFactory creates a migrator from a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// Database interface wraps the pgxpool.Pool methods the commands use.
type Database interface {
	postgres.Pool
	Ping(ctx context.Context) error
	Close()
}

var _ Database = (*pgxpool.Pool)(nil)

// AutoMigrator interface wraps the migrator methods the serve command
// needs when automigrate is enabled.
type AutoMigrator interface {
	Up() error
	Close() error
}

// MigratorClient interface wraps the store.Migrator methods the migrate
// and status subcommands use.
type MigratorClient interface {
	AutoMigrator
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
}

var _ MigratorClient = (*store.Migrator)(nil)

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// connectDatabase and newMigrator are seams so tests can run the
// operator commands without a live server.
var (
	connectDatabase = func(ctx context.Context, url string) (Database, error) {
		return store.Connect(ctx, url)
	}
	newMigrator = func(url string) (MigratorClient, error) {
		return store.NewMigrator(url)
	}
)

// newAuthService wires the Postgres repositories into an auth service.
func newAuthService(pool postgres.Pool) (*auth.Service, error) {
	users := postgres.NewUserRepository(pool)
	sessions := postgres.NewSessionRepository(pool)
	tx := postgres.NewTransactor(pool)

	service, err := auth.NewService(users, sessions, tx, auth.NewBcryptHasher())
	if err != nil {
		return nil, oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}
	return service, nil
}
