package auth

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
)

type mockUserRepository struct {
	byEmail map[string]*User
	byID    map[int64]*User
}

func newMockUserRepository(users ...*User) *mockUserRepository {
	m := &mockUserRepository{
		byEmail: make(map[string]*User),
		byID:    make(map[int64]*User),
	}
	for _, u := range users {
		m.byEmail[u.Email] = u
		m.byID[u.ID] = u
	}
	return m
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	u, exists := m.byEmail[email]
	if !exists {
		return nil, internal.ErrInvalidCredentials
	}
	return u, nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id int64) (*User, error) {
	u, exists := m.byID[id]
	if !exists {
		return nil, internal.ErrInvalidToken
	}
	return u, nil
}

type capturingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (c *capturingAuditor) Record(_ context.Context, entry audit.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

func (c *capturingAuditor) Entries() []audit.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]audit.Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service *Service
		auditor *capturingAuditor

		activeUser *User
	)

	ginkgo.BeforeEach(func() {
		hash, err := HashPassword("correct-horse", 10)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		activeUser = &User{
			ID:           1,
			Email:        "staff@unit.mil",
			Name:         "Sam Staff",
			Role:         RoleStaff,
			PasswordHash: hash,
			IsActive:     true,
		}
		inactiveUser := &User{
			ID:           2,
			Email:        "gone@unit.mil",
			Name:         "Gone Member",
			Role:         RoleReservist,
			PasswordHash: hash,
			IsActive:     false,
		}

		repo := newMockUserRepository(activeUser, inactiveUser)
		auditor = &capturingAuditor{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		tokens := NewJWTTokenGenerator(
			"access-secret-that-is-long-enough-123",
			"refresh-secret-that-is-long-enough-456",
			15*time.Minute, 7*24*time.Hour,
		)
		service = NewService(repo, tokens, auditor, logger, 10)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("returns a token pair and audits the login", func() {
			tokens, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "staff@unit.mil",
				Password: "correct-horse",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(tokens.RefreshToken).NotTo(gomega.BeEmpty())

			entries := auditor.Entries()
			gomega.Expect(entries).To(gomega.HaveLen(1))
			gomega.Expect(entries[0].Action).To(gomega.Equal(audit.ActionLogin))
		})

		ginkgo.It("rejects a wrong password without auditing", func() {
			_, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "staff@unit.mil",
				Password: "wrong",
			})
			gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			gomega.Expect(auditor.Entries()).To(gomega.BeEmpty())
		})

		ginkgo.It("rejects unknown emails with the same error as a bad password", func() {
			_, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "nobody@unit.mil",
				Password: "correct-horse",
			})
			gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
		})

		ginkgo.It("refuses inactive accounts", func() {
			_, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "gone@unit.mil",
				Password: "correct-horse",
			})
			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("resolves the stored user, taking the role from storage", func() {
			tokens, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "staff@unit.mil",
				Password: "correct-horse",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			// Role changes in storage take effect on the next validation,
			// independent of anything encoded in the token.
			activeUser.Role = RoleAdministrator

			user, err := service.ValidateAccessToken(context.Background(), tokens.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(user.Role).To(gomega.Equal(RoleAdministrator))
		})

		ginkgo.It("rejects garbage tokens", func() {
			_, err := service.ValidateAccessToken(context.Background(), "not-a-token")
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})

		ginkgo.It("rejects a refresh token used as an access token", func() {
			tokens, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "staff@unit.mil",
				Password: "correct-horse",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(context.Background(), tokens.RefreshToken)
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})
	})

	ginkgo.Describe("HashPassword", func() {
		ginkgo.It("surfaces an error for an out-of-range bcrypt cost", func() {
			hash, err := HashPassword("correct-horse", 40)
			gomega.Expect(err).To(gomega.HaveOccurred())
			gomega.Expect(hash).To(gomega.BeEmpty())
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("rotates both tokens", func() {
			tokens, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "staff@unit.mil",
				Password: "correct-horse",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			rotated, err := service.RefreshTokens(context.Background(), tokens.RefreshToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(rotated.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(rotated.RefreshToken).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("refuses refresh for a deactivated account", func() {
			tokens, err := service.Authenticate(context.Background(), LoginDTO{
				Email:    "staff@unit.mil",
				Password: "correct-horse",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			activeUser.IsActive = false

			_, err = service.RefreshTokens(context.Background(), tokens.RefreshToken)
			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})
	})
})
