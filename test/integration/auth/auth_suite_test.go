// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

//go:build integration

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
	authpg "github.com/lixiaoblack/personal-workstation-sub002/internal/auth/postgres"
	"github.com/lixiaoblack/personal-workstation-sub002/internal/store"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Lifecycle Integration Suite")
}

// testEnv holds all resources needed for integration tests.
type testEnv struct {
	ctx       context.Context
	pool      *pgxpool.Pool
	container testcontainers.Container

	Users    *authpg.UserRepository
	Sessions *authpg.SessionRepository
	Service  *auth.Service
}

var env *testEnv

var _ = BeforeSuite(func() {
	var err error
	env, err = setupAuthTestEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if env != nil {
		env.cleanup()
	}
})

func setupAuthTestEnv() (*testEnv, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("workstation_test"),
		postgres.WithUsername("workstation"),
		postgres.WithPassword("workstation"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Close(); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	users := authpg.NewUserRepository(pool)
	sessions := authpg.NewSessionRepository(pool)
	service, err := auth.NewService(users, sessions, authpg.NewTransactor(pool), auth.NewBcryptHasher())
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &testEnv{
		ctx:       ctx,
		pool:      pool,
		container: container,
		Users:     users,
		Sessions:  sessions,
		Service:   service,
	}, nil
}

func (e *testEnv) cleanup() {
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

// Helper functions shared across the suite

// cleanupAccounts removes all accounts and sessions from the test database.
func cleanupAccounts(ctx context.Context, pool *pgxpool.Pool) {
	_, _ = pool.Exec(ctx, "DELETE FROM sessions")
	_, _ = pool.Exec(ctx, "DELETE FROM users")
}

// backdateSession forces a session's expiry into the past so the lazy sweep
// sees it as expired.
func backdateSession(ctx context.Context, pool *pgxpool.Pool, token string, age time.Duration) {
	_, err := pool.Exec(ctx,
		`UPDATE sessions SET expires_at = $2 WHERE token = $1`,
		token, time.Now().Add(-age))
	Expect(err).NotTo(HaveOccurred(), "failed to backdate session")
}

// countSessions returns the raw session row count for a user, expired rows
// included. Bypasses the repository on purpose.
func countSessions(ctx context.Context, pool *pgxpool.Pool, userID int64) int {
	var n int
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sessions WHERE user_id = $1`, userID).Scan(&n)
	Expect(err).NotTo(HaveOccurred())
	return n
}

// countUsers returns the number of accounts with the given username.
func countUsers(ctx context.Context, pool *pgxpool.Pool, username string) int {
	var n int
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE username = $1`, username).Scan(&n)
	Expect(err).NotTo(HaveOccurred())
	return n
}
