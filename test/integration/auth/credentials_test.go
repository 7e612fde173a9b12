// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Personal Workstation Contributors

//go:build integration

package auth_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/lixiaoblack/personal-workstation-sub002/internal/auth"
)

var _ = Describe("Credentials and Profile", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		cleanupAccounts(ctx, env.pool)
	})

	Describe("Password change", func() {
		It("revokes every session when the password changes", func() {
			user, firstToken, err := env.Service.Register(ctx, "alice", "old password", nil)
			Expect(err).NotTo(HaveOccurred())
			_, secondToken, err := env.Service.Login(ctx, "alice", "old password")
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Service.UpdatePassword(ctx, user.ID, "old password", "new password")).To(Succeed())

			for _, token := range []string{firstToken, secondToken} {
				got, err := env.Service.ValidateToken(ctx, token)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(BeNil(), "sessions from before the change must be dead")
			}
			Expect(countSessions(ctx, env.pool, user.ID)).To(BeZero())

			_, _, err = env.Service.Login(ctx, "alice", "old password")
			Expect(err).To(MatchError(ContainSubstring("incorrect password")))

			_, _, err = env.Service.Login(ctx, "alice", "new password")
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a wrong old password and keeps sessions alive", func() {
			user, token, err := env.Service.Register(ctx, "alice", "old password", nil)
			Expect(err).NotTo(HaveOccurred())

			err = env.Service.UpdatePassword(ctx, user.ID, "not the old password", "new password")
			Expect(err).To(MatchError(ContainSubstring("old password does not match")))

			got, err := env.Service.ValidateToken(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil(), "a failed change must not revoke anything")
		})
	})

	Describe("Password reset", func() {
		It("resets by username and revokes all sessions", func() {
			user, token, err := env.Service.Register(ctx, "bob", "forgotten password", nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(env.Service.ResetPassword(ctx, "bob", "replacement password")).To(Succeed())

			got, err := env.Service.ValidateToken(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeNil())
			Expect(countSessions(ctx, env.pool, user.ID)).To(BeZero())

			_, _, err = env.Service.Login(ctx, "bob", "replacement password")
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails for unknown usernames", func() {
			err := env.Service.ResetPassword(ctx, "nobody", "replacement password")
			Expect(err).To(MatchError(ContainSubstring("no account with that username")))
		})
	})

	Describe("Profile updates", func() {
		It("updates only the provided fields", func() {
			nickname := "Caz"
			user, _, err := env.Service.Register(ctx, "carol", "correct horse battery", &nickname)
			Expect(err).NotTo(HaveOccurred())

			email := "carol@example.com"
			updated, err := env.Service.UpdateProfile(ctx, user.ID, auth.ProfileUpdate{Email: &email})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Email).NotTo(BeNil())
			Expect(*updated.Email).To(Equal("carol@example.com"))
			Expect(updated.Nickname).NotTo(BeNil(), "untouched fields must survive")
			Expect(*updated.Nickname).To(Equal("Caz"))
		})

		It("clears a field when given an empty string", func() {
			nickname := "Caz"
			user, _, err := env.Service.Register(ctx, "carol", "correct horse battery", &nickname)
			Expect(err).NotTo(HaveOccurred())

			empty := ""
			updated, err := env.Service.UpdateProfile(ctx, user.ID, auth.ProfileUpdate{Nickname: &empty})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Nickname).To(BeNil())
		})

		It("does not disturb sessions", func() {
			user, token, err := env.Service.Register(ctx, "carol", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())

			bio := "keeps odd hours"
			_, err = env.Service.UpdateProfile(ctx, user.ID, auth.ProfileUpdate{Bio: &bio})
			Expect(err).NotTo(HaveOccurred())

			got, err := env.Service.ValidateToken(ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
		})
	})

	Describe("Expired session sweep", func() {
		It("deletes expired rows and spares live ones", func() {
			user, liveToken, err := env.Service.Register(ctx, "dave", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())
			_, staleToken, err := env.Service.Login(ctx, "dave", "correct horse battery")
			Expect(err).NotTo(HaveOccurred())
			backdateSession(ctx, env.pool, staleToken, time.Hour)

			deleted, err := env.Sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(Equal(int64(1)))

			Expect(countSessions(ctx, env.pool, user.ID)).To(Equal(1))
			got, err := env.Service.ValidateToken(ctx, liveToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).NotTo(BeNil())
		})

		It("reports zero when nothing is expired", func() {
			_, _, err := env.Service.Register(ctx, "dave", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())

			deleted, err := env.Sessions.DeleteExpired(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeZero())
		})
	})

	Describe("Initialization probe", func() {
		It("reports false on an empty database and true after the first registration", func() {
			initialized, err := env.Service.IsInitialized(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(initialized).To(BeFalse())

			_, _, err = env.Service.Register(ctx, "alice", "correct horse battery", nil)
			Expect(err).NotTo(HaveOccurred())

			initialized, err = env.Service.IsInitialized(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(initialized).To(BeTrue())
		})
	})
})
