package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/expense-approval/internal"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock UserRepository for testing
type mockUserRepository struct {
	credentials   map[string]string // email -> password hash
	userIDs       map[string]string // email -> userID
	usersByID     map[int64]*User
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockUserRepository{
		credentials: map[string]string{
			"employee@example.com": string(hashedPassword),
			"manager@example.com":  string(hashedPassword),
			"admin@example.com":    string(hashedPassword),
		},
		userIDs: map[string]string{
			"employee@example.com": "1",
			"manager@example.com":  "2",
			"admin@example.com":    "3",
		},
		usersByID: map[int64]*User{
			1: {ID: 1, CompanyID: 1, Email: "employee@example.com", Name: "Employee", Role: "employee"},
			2: {ID: 2, CompanyID: 1, Email: "manager@example.com", Name: "Manager", Role: "manager"},
			3: {ID: 3, CompanyID: 1, Email: "admin@example.com", Name: "Admin", Role: "admin"},
		},
	}
}

func (m *mockUserRepository) GetCredentialsByEmail(email string) (string, string, error) {
	if m.returnError {
		return "", "", m.errorToReturn
	}

	if hash, exists := m.credentials[email]; exists {
		if userID, ok := m.userIDs[email]; ok {
			return hash, userID, nil
		}
	}
	return "", "", internal.ErrUserNotFound
}

func (m *mockUserRepository) GetUserByID(userID int64) (*User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}

	if user, exists := m.usersByID[userID]; exists {
		return user, nil
	}
	return nil, internal.ErrUserNotFound
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *RSATokenGenerator
	)

	ginkgo.BeforeEach(func() {
		privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())

		mockRepo = newMockUserRepository()
		tokenGen = NewRSATokenGenerator(privateKey, &privateKey.PublicKey, 15*time.Minute, 24*time.Hour)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("returns a token pair for valid credentials", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "employee@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).NotTo(gomega.BeEmpty())
			gomega.Expect(tokens.RefreshToken).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("embeds the user's role in the access token", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "manager@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("2"))
			gomega.Expect(claims.Role).To(gomega.Equal("manager"))
		})

		ginkgo.It("rejects a wrong password", func() {
			_, err := service.Authenticate(LoginDTO{
				Email:    "employee@example.com",
				Password: "wrong_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("rejects an unknown email", func() {
			_, err := service.Authenticate(LoginDTO{
				Email:    "nobody@example.com",
				Password: "correct_password",
			})

			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidCredentials))
		})

		ginkgo.It("rejects missing fields before touching the repository", func() {
			_, err := service.Authenticate(LoginDTO{Email: "employee@example.com"})
			gomega.Expect(err).To(gomega.HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("rotates a valid refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "employee@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			rotated, err := service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(rotated.AccessToken).NotTo(gomega.BeEmpty())
		})

		ginkgo.It("rejects an access token used as refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "employee@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.RefreshTokens(tokens.AccessToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects garbage tokens", func() {
			_, err := service.RefreshTokens("not-a-token")
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("rejects a refresh token on API routes", func() {
			tokens, err := service.Authenticate(LoginDTO{
				Email:    "employee@example.com",
				Password: "correct_password",
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(tokens.RefreshToken)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrInvalidToken))
		})

		ginkgo.It("rejects an expired token", func() {
			shortGen := &RSATokenGenerator{
				PrivateKey:      tokenGen.PrivateKey,
				PublicKey:       tokenGen.PublicKey,
				AccessTokenTTL:  -time.Minute,
				RefreshTokenTTL: 24 * time.Hour,
			}
			expired, err := shortGen.GenerateAccessToken("1", "employee@example.com", "employee")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(expired)
			gomega.Expect(err).To(gomega.MatchError(internal.ErrTokenExpired))
		})
	})
})
