package auth

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/reservehq/reserve-personnel/internal"
	"github.com/reservehq/reserve-personnel/internal/audit"
)

var (
	ErrInvalidCredentials = internal.ErrInvalidCredentials
	ErrUserInactive       = internal.ErrUserInactive
	ErrInvalidToken       = internal.ErrInvalidToken
)

// Repository defines the data access methods for user accounts.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}

type Service struct {
	repo       Repository
	tokens     TokenGeneratorAPI
	auditor    audit.Recorder
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, tokens TokenGeneratorAPI, auditor audit.Recorder, logger *slog.Logger, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		auditor:    auditor,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Authenticate validates credentials and returns a token pair. Successful
// logins are audited; failed attempts are logged only.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	user, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil {
		s.logger.Warn("login failed: unknown email", "email", dto.Email)
		return AuthTokens{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		s.logger.Warn("login rejected: inactive account", "user_id", user.ID)
		return AuthTokens{}, ErrUserInactive
	}

	if err := VerifyPassword(user.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login failed: bad password", "user_id", user.ID)
		return AuthTokens{}, ErrInvalidCredentials
	}

	userID := strconv.FormatInt(user.ID, 10)
	accessToken, err := s.tokens.GenerateAccessToken(userID, user.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate access token", err)
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(userID, user.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate refresh token", err)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:   user.ID,
		ActorName: user.Name,
		ActorRole: string(user.Role),
		Action:    audit.ActionLogin,
		Resource:  "session",
	})

	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshTokens rotates both tokens from a valid refresh token.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}

	user, err := s.userFromClaims(ctx, claims)
	if err != nil {
		return AuthTokens{}, err
	}

	userID := strconv.FormatInt(user.ID, 10)
	accessToken, err := s.tokens.GenerateAccessToken(userID, user.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate access token", err)
	}

	newRefreshToken, err := s.tokens.GenerateRefreshToken(userID, user.Email)
	if err != nil {
		return AuthTokens{}, internal.NewInternalError("failed to generate refresh token", err)
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: newRefreshToken}, nil
}

// ValidateAccessToken resolves an access token to the stored user. The role
// always comes from storage, never from the token or any client claim.
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*User, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.userFromClaims(ctx, claims)
}

func (s *Service) userFromClaims(ctx context.Context, claims *Claims) (*User, error) {
	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return user, nil
}

// RecordLogout audits an explicit logout.
func (s *Service) RecordLogout(ctx context.Context, user *User) {
	s.auditor.Record(ctx, audit.Entry{
		ActorID:   user.ID,
		ActorName: user.Name,
		ActorRole: string(user.Role),
		Action:    audit.ActionLogout,
		Resource:  "session",
	})
}

func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}
