package service

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

var _ = Describe("AuthService", func() {
	var (
		ctx   context.Context
		store *fakeStore
		svc   *AuthService
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore()
		svc = NewAuthService(config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 15,
			BcryptCost:            bcrypt.MinCost,
		}, &fakeUserRepo{store: store})
	})

	Describe("Register", func() {
		It("creates an account with employee and Other defaults", func() {
			user, token, exp, err := svc.Register(ctx, RegisterInput{
				Name:     "carol",
				Email:    "carol@example.com",
				Password: "hunter22",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Role).To(Equal(domain.RoleEmployee))
			Expect(user.Department).To(Equal(domain.DepartmentOther))
			Expect(token).NotTo(BeEmpty())
			Expect(exp).NotTo(BeZero())
		})

		It("never stores the plaintext password", func() {
			user, _, _, err := svc.Register(ctx, RegisterInput{
				Name:     "carol",
				Email:    "carol@example.com",
				Password: "hunter22",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(user.PasswordHash).NotTo(Equal("hunter22"))
			Expect(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22"))).To(Succeed())
		})

		It("rejects a duplicate email with a conflict", func() {
			_, _, _, err := svc.Register(ctx, RegisterInput{Name: "carol", Email: "carol@example.com", Password: "hunter22"})
			Expect(err).NotTo(HaveOccurred())

			_, _, _, err = svc.Register(ctx, RegisterInput{Name: "carla", Email: "carol@example.com", Password: "other"})
			Expect(apperrors.IsCode(err, "CONFLICT")).To(BeTrue())
		})

		It("honors an explicit admin role", func() {
			user, _, _, err := svc.Register(ctx, RegisterInput{
				Name:       "root",
				Email:      "root@example.com",
				Password:   "hunter22",
				Role:       domain.RoleAdmin,
				Department: domain.DepartmentIT,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Role).To(Equal(domain.RoleAdmin))
			Expect(user.Department).To(Equal(domain.DepartmentIT))
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			_, _, _, err := svc.Register(ctx, RegisterInput{Name: "carol", Email: "carol@example.com", Password: "hunter22"})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the account and a parseable token", func() {
			user, token, _, err := svc.Login(ctx, "carol@example.com", "hunter22")
			Expect(err).NotTo(HaveOccurred())

			claims, err := svc.TokenManager().ParseToken(token)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal(user.ID))
			Expect(claims.Role).To(Equal(domain.RoleEmployee))
		})

		It("rejects a wrong password without leaking which part failed", func() {
			_, _, _, err := svc.Login(ctx, "carol@example.com", "wrong")
			Expect(apperrors.IsCode(err, "UNAUTHORIZED")).To(BeTrue())
		})

		It("rejects an unknown email with the same error", func() {
			_, _, _, err := svc.Login(ctx, "nobody@example.com", "hunter22")
			Expect(apperrors.IsCode(err, "UNAUTHORIZED")).To(BeTrue())
		})
	})

	Describe("Profile", func() {
		It("returns the account behind an identity", func() {
			registered, _, _, err := svc.Register(ctx, RegisterInput{Name: "carol", Email: "carol@example.com", Password: "hunter22"})
			Expect(err).NotTo(HaveOccurred())

			user, err := svc.Profile(ctx, registered.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("carol@example.com"))
		})

		It("returns not found for an unknown user", func() {
			_, err := svc.Profile(ctx, "usr-missing")
			Expect(apperrors.IsCode(err, "NOT_FOUND")).To(BeTrue())
		})
	})
})
