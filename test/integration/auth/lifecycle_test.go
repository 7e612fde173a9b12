// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

//go:build integration

package auth_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
)

var _ = Describe("Account Lifecycle", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupAccounts(ctx, env.pool)
	})

	Describe("Registration", func() {
		It("creates the account and an initial session in one step", func() {
			user, token, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.ID).NotTo(BeZero())
			Expect(user.Username).To(Equal("alice"))
			Expect(user.PasswordHash).To(BeEmpty(), "returned user must not carry the hash")
			Expect(token).To(HaveLen(64))

			got, err := env.Service.ValidateToken(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
			Expect(got.ID).To(Equal(user.ID))
		})

		It("stores the nickname when one is given", func() {
			nickname := "Allie"
			user, _, err := env.Service.Register(ctx, "alice", "correct horse battery", &nickname)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Nickname).NotTo(BeNil())
			Expect(*user.Nickname).To(Equal("Allie"))
		})

		It("rejects a duplicate username and leaves the original account intact", func() {
			first, firstToken, err := env.Service.Register(ctx, "alice", "first password", nil)
			Expect(err).NotTo(HaveOccurred())

			_, _, err = env.Service.Register(ctx, "alice", "second password", nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, auth.ErrDuplicateUsername)).To(BeTrue())

			Expect(countUsers(ctx, env.pool, "alice")).To(Equal(1))
			Expect(countSessions(ctx, env.pool, first.ID)).To(Equal(1))

			got, err := env.Service.ValidateToken(ctx, firstToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
		})

		It("rejects usernames that do not start with a letter", func() {
			_, _, err := env.Service.Register(ctx, "9lives", "correct horse battery", nil)
			Expect(err).To(MatchError(ContainSubstring("start with a letter")))
			Expect(countUsers(ctx, env.pool, "9lives")).To(BeZero())
		})

		It("rejects empty passwords before touching the database", func() {
			_, _, err := env.Service.Register(ctx, "alice", "", nil)
			Expect(err).To(MatchError(ContainSubstring("password cannot be empty")))
			Expect(countUsers(ctx, env.pool, "alice")).To(BeZero())
		})
	})

	Describe("Login", func() {
		It("issues a fresh token per login and keeps prior sessions live", func() {
			user, firstToken, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())

			_, secondToken, err := env.Service.Login(ctx, "alice", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())
			Expect(secondToken).NotTo(Equal(firstToken))

			for _, token := range []string{firstToken, secondToken} {
				got, err := env.Service.ValidateToken(ctx, token)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).NotTo(BeNil())
			}
			Expect(countSessions(ctx, env.pool, user.ID)).To(Equal(2))
		})

		It("rejects the wrong password", func() {
			_, _, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())

			_, _, err = env.Service.Login(ctx, "alice", "wrong password")
			Expect(err).To(MatchError(ContainSubstring("incorrect password")))
		})

		It("rejects unknown usernames", func() {
			_, _, err := env.Service.Login(ctx, "nobody", "whatever password")
			Expect(err).To(MatchError(ContainSubstring("no account with that username")))
		})

		It("records the last login time", func() {
			_, _, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())

			user, _, err := env.Service.Login(ctx, "alice", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.LastLoginAt).NotTo(BeNil())
			Expect(*user.LastLoginAt).To(BeTemporally("~", time.Now(), 5*time.Second))
		})

		It("purges expired sessions before authenticating", func() {
			user, staleToken, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())
			backdateSession(ctx, env.pool, staleToken, time.Hour)

			_, _, err = env.Service.Login(ctx, "alice", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			// The backdated row is gone, only the new session remains.
			Expect(countSessions(ctx, env.pool, user.ID)).To(Equal(1))
		})
	})

	Describe("Token validation", func() {
		It("treats an unknown token as unauthenticated, not an error", func() {
			got, err := env.Service.ValidateToken(ctx, "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("treats an empty token as unauthenticated", func() {
			got, err := env.Service.ValidateToken(ctx, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
		})

		It("treats an expired token as unauthenticated and removes the row", func() {
			user, token, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())
			backdateSession(ctx, env.pool, token, time.Minute)

			got, err := env.Service.ValidateToken(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
			Expect(countSessions(ctx, env.pool, user.ID)).To(BeZero())
		})
	})

	Describe("Logout", func() {
		It("revokes only the session it names", func() {
			_, firstToken, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())
			_, secondToken, err := env.Service.Login(ctx, "alice", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Service.Logout(ctx, firstToken)).To(Succeed())

			got, err := env.Service.ValidateToken(ctx, firstToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())

			got, err = env.Service.ValidateToken(ctx, secondToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
		})

		It("is idempotent for unknown and already-revoked tokens", func() {
			_, token, err := env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Service.Logout(ctx, token)).To(Succeed())
			Expect(env.Service.Logout(ctx, token)).To(Succeed())
			Expect(env.Service.Logout(ctx, "never issued")).To(Succeed())
		})
	})
})
