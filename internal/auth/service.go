package auth

import (
	"errors"

	"github.com/talenthub/performance-management/internal"
	"github.com/talenthub/performance-management/internal/identity"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = internal.ErrInvalidCredentials
	ErrInvalidToken       = internal.ErrInvalidToken
	ErrUserInactive       = internal.ErrUserInactive
)

// Directory is the slice of the identity service auth needs.
type Directory interface {
	GetByEmail(email string) (*identity.User, error)
	GetByID(id int64) (*identity.User, error)
}

type Service struct {
	directory      Directory
	tokenGenerator TokenGenerator
}

func NewService(directory Directory, tokenGen TokenGenerator) *Service {
	return &Service{
		directory:      directory,
		tokenGenerator: tokenGen,
	}
}

// Authenticate validates credentials and returns tokens.
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	user, err := s.directory.GetByEmail(dto.Email)
	if err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if !user.IsActiveUser() {
		return AuthTokens{}, ErrUserInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	return s.issueTokens(formatUserID(user.ID))
}

// RefreshTokens validates a refresh token and returns a new token pair.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issueTokens(claims.UserID)
}

// ValidateAccessToken validates an access token and returns its claims.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// ActorFromClaims resolves the token subject to a live user account.
func (s *Service) ActorFromClaims(claims *Claims) (*identity.User, error) {
	userID, err := parseUserID(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.directory.GetByID(userID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActiveUser() {
		return nil, ErrUserInactive
	}
	return user, nil
}

func (s *Service) issueTokens(userID string) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(userID)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(userID)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
