// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/config"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/gateway"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/logging"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/observability"
)

const (
	serviceName     = "workstation"
	shutdownTimeout = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the workstation service",
		Long: `Start the workstation service: connect to PostgreSQL, optionally apply
pending migrations, and expose metrics and health endpoints until the
process receives SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	// Flag defaults mirror config.Default() so an unchanged flag never
	// shifts the effective value.
	def := config.Default()
	flags := cmd.Flags()
	flags.String("database.url", "", "PostgreSQL connection URL (default: $DATABASE_URL)")
	flags.Bool("database.automigrate", def.Database.AutoMigrate, "apply pending migrations before serving")
	flags.String("log.level", def.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log.format", def.Log.Format, "log format (json or text)")
	flags.String("metrics.addr", def.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.ConfigLoader == nil {
		deps.ConfigLoader = config.Load
	}
	if deps.DatabaseConnector == nil {
		deps.DatabaseConnector = connectDatabase
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (AutoMigrator, error) {
			return newMigrator(url)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := deps.ConfigLoader(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level)

	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required: set DATABASE_URL, database.url in the config file, or --database.url")
	}

	slog.Info("starting workstation service",
		"log_format", cfg.Log.Format,
		"log_level", cfg.Log.Level,
		"automigrate", cfg.Database.AutoMigrate,
	)

	pool, err := deps.DatabaseConnector(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := runAutoMigration(cfg.Database.URL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	service, err := newAuthService(pool)
	if err != nil {
		return err
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The observability server is optional; the gateway still counts into
	// a private registry when it is disabled.
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").With("addr", cfg.Metrics.Addr).Wrap(startErr)
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	gw, err := gateway.New(service, metrics)
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	// Startup probe; doubles as a hint for first-run setups.
	if init := gw.IsInitialized(ctx); !init.Success {
		slog.Warn("initialization check failed", "code", init.Code)
	} else if !init.Value {
		slog.Info("no accounts registered yet")
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Workstation service started")
	slog.Info("workstation service ready")

	// Wait for shutdown signal or cancellation
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// runAutoMigration applies pending migrations before the service starts.
func runAutoMigration(url string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator, connection may leak", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}

	slog.Info("migrations applied")
	return nil
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error so a failed server takes the whole process down
// gracefully. It exits when an error arrives, the channel closes, or the
// context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
