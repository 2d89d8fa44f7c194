// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

//go:build integration

package integration

import (
	"context"
	"regexp"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/rosterd/rosterd/internal/auth"
	authpg "github.com/rosterd/rosterd/internal/auth/postgres"
	"github.com/rosterd/rosterd/internal/directory"
	dirpg "github.com/rosterd/rosterd/internal/directory/postgres"
)

// captureMailer records outbound mail instead of delivering it.
type captureMailer struct {
	mu     sync.Mutex
	bodies []string
}

func (m *captureMailer) Send(_ context.Context, _, _, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies = append(m.bodies, body)
	return nil
}

func (m *captureMailer) lastBody() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bodies) == 0 {
		return ""
	}
	return m.bodies[len(m.bodies)-1]
}

var _ = Describe("User directory", func() {
	var (
		dirSvc      *directory.Service
		authSvc     *auth.Service
		recoverySvc *auth.RecoveryService
		mailer      *captureMailer
	)

	input := func(email string) directory.RegistrationInput {
		return directory.RegistrationInput{
			Name:     "Ann",
			Email:    email,
			Gender:   "Female",
			Password: "secret1",
		}
	}

	BeforeEach(func() {
		env.truncateAll()

		users := dirpg.NewUserRepository(env.pool)
		sessions := authpg.NewSessionRepository(env.pool)
		resets := authpg.NewPasswordResetRepository(env.pool)
		hasher := auth.NewArgon2idHasher()
		mailer = &captureMailer{}

		var err error
		dirSvc, err = directory.NewService(users, hasher)
		Expect(err).NotTo(HaveOccurred())
		authSvc, err = auth.NewService(users, sessions, hasher)
		Expect(err).NotTo(HaveOccurred())
		recoverySvc, err = auth.NewRecoveryService(users, resets, hasher, mailer, "http://localhost:8080", nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("registration", func() {
		It("persists a record retrievable by id and listing", func() {
			user, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			got, err := dirSvc.Get(env.ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("ann@example.com"))
			Expect(got.Gender).To(Equal(directory.GenderFemale))

			all, err := dirSvc.List(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("rejects a duplicate email regardless of case", func() {
			_, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, err = dirSvc.Register(env.ctx, input("ANN@example.com"))
			Expect(err).To(MatchError(directory.ErrDuplicateEmail))
		})
	})

	Describe("login and sessions", func() {
		It("round-trips a session from login to logout", func() {
			_, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, token, err := authSvc.Login(env.ctx, "ann@example.com", "secret1")
			Expect(err).NotTo(HaveOccurred())

			session, err := authSvc.ValidateSession(env.ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Email).To(Equal("ann@example.com"))

			Expect(authSvc.Logout(env.ctx, session.ID)).To(Succeed())

			_, err = authSvc.ValidateSession(env.ctx, token)
			Expect(err).To(HaveOccurred())
		})

		It("distinguishes an unknown email from a wrong password", func() {
			_, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, _, err = authSvc.Login(env.ctx, "ghost@example.com", "secret1")
			Expect(err).To(MatchError(directory.ErrNotFound))

			_, _, err = authSvc.Login(env.ctx, "ann@example.com", "wrong")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
		})
	})

	Describe("password change", func() {
		It("swaps credentials atomically", func() {
			_, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			err = authSvc.ChangePassword(env.ctx, "ann@example.com", "secret1", "secret2", "secret2")
			Expect(err).NotTo(HaveOccurred())

			_, _, err = authSvc.Login(env.ctx, "ann@example.com", "secret1")
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))

			_, _, err = authSvc.Login(env.ctx, "ann@example.com", "secret2")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("password recovery", func() {
		tokenPattern := regexp.MustCompile(`token=([0-9a-f]+)`)

		It("resets the password with a mailed token, once", func() {
			_, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			Expect(recoverySvc.RequestRecovery(env.ctx, "ann@example.com")).To(Succeed())

			match := tokenPattern.FindStringSubmatch(mailer.lastBody())
			Expect(match).To(HaveLen(2))
			token := match[1]

			Expect(recoverySvc.ResetPassword(env.ctx, token, "secret2")).To(Succeed())

			_, _, err = authSvc.Login(env.ctx, "ann@example.com", "secret2")
			Expect(err).NotTo(HaveOccurred())

			err = recoverySvc.ResetPassword(env.ctx, token, "secret3")
			Expect(err).To(MatchError(auth.ErrTokenInvalid))
		})
	})

	Describe("profile edits and deletion", func() {
		It("edits name and email without touching credentials", func() {
			user, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			Expect(dirSvc.EditProfile(env.ctx, user.ID, "Ann B", "ann.b@example.com")).To(Succeed())

			_, _, err = authSvc.Login(env.ctx, "ann.b@example.com", "secret1")
			Expect(err).NotTo(HaveOccurred())
		})

		It("cascades session teardown on delete", func() {
			user, err := dirSvc.Register(env.ctx, input("ann@example.com"))
			Expect(err).NotTo(HaveOccurred())

			_, token, err := authSvc.Login(env.ctx, "ann@example.com", "secret1")
			Expect(err).NotTo(HaveOccurred())

			Expect(dirSvc.Delete(env.ctx, user.ID)).To(Succeed())

			_, err = authSvc.ValidateSession(env.ctx, token)
			Expect(err).To(HaveOccurred())

			_, err = dirSvc.Get(env.ctx, user.ID)
			Expect(err).To(MatchError(directory.ErrNotFound))
		})
	})
})
