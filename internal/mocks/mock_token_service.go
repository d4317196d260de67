package mocks

import (
	"fmt"
	"time"

	"github.com/you/identitysvc/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	GenerateAccessTokenFunc  func(accountID uint, sessionID string) (string, time.Time, error)
	GenerateRefreshTokenFunc func(accountID uint, sessionID string) (string, time.Time, error)
	ValidateAccessTokenFunc  func(token string) (*domain.TokenClaims, error)
	ValidateRefreshTokenFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// GenerateAccessToken generates an access token
func (m *MockTokenService) GenerateAccessToken(accountID uint, sessionID string) (string, time.Time, error) {
	if m.GenerateAccessTokenFunc != nil {
		return m.GenerateAccessTokenFunc(accountID, sessionID)
	}
	// Default behavior: deterministic token
	return fmt.Sprintf("access_%d_%s", accountID, sessionID), time.Now().Add(45 * time.Minute), nil
}

// GenerateRefreshToken generates a refresh token
func (m *MockTokenService) GenerateRefreshToken(accountID uint, sessionID string) (string, time.Time, error) {
	if m.GenerateRefreshTokenFunc != nil {
		return m.GenerateRefreshTokenFunc(accountID, sessionID)
	}
	// Default behavior: deterministic token
	return fmt.Sprintf("refresh_%d_%s", accountID, sessionID), time.Now().Add(21 * 24 * time.Hour), nil
}

// ValidateAccessToken validates an access token
func (m *MockTokenService) ValidateAccessToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateAccessTokenFunc != nil {
		return m.ValidateAccessTokenFunc(token)
	}
	// Default behavior: invalid token
	return nil, domain.ErrTokenMalformed
}

// ValidateRefreshToken validates a refresh token
func (m *MockTokenService) ValidateRefreshToken(token string) (*domain.TokenClaims, error) {
	if m.ValidateRefreshTokenFunc != nil {
		return m.ValidateRefreshTokenFunc(token)
	}
	// Default behavior: invalid token
	return nil, domain.ErrTokenMalformed
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
