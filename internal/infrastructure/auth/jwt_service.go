package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/you/identitysvc/domain"
)

// identityClaims is the signed payload of both access and refresh tokens
type identityClaims struct {
	AccountID uint             `json:"account_id"`
	SessionID string           `json:"session_id"`
	Type      domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey       []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	now             func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, issuer string, accessTTL, refreshTTL time.Duration) *JWTServiceImpl {
	return &JWTServiceImpl{
		secretKey:       []byte(secretKey),
		issuer:          issuer,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		now:             time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating tokens
func (j *JWTServiceImpl) WithClock(now func() time.Time) *JWTServiceImpl {
	j.now = now
	return j
}

// GenerateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateAccessToken(accountID uint, sessionID string) (string, time.Time, error) {
	return j.generate(accountID, sessionID, domain.TokenTypeAccess, j.accessTokenTTL)
}

// GenerateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) GenerateRefreshToken(accountID uint, sessionID string) (string, time.Time, error) {
	return j.generate(accountID, sessionID, domain.TokenTypeRefresh, j.refreshTokenTTL)
}

func (j *JWTServiceImpl) generate(accountID uint, sessionID string, typ domain.TokenType, ttl time.Duration) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(ttl)
	claims := identityClaims{
		AccountID: accountID,
		SessionID: sessionID,
		Type:      typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			// Unique JWT ID keeps two tokens minted in the same second distinct
			ID: uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateAccessToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.TokenTypeAccess)
}

// ValidateRefreshToken implements domain.TokenService
func (j *JWTServiceImpl) ValidateRefreshToken(tokenString string) (*domain.TokenClaims, error) {
	return j.validateToken(tokenString, domain.TokenTypeRefresh)
}

// validateToken verifies signature, issuer and expiry, then checks the token type
func (j *JWTServiceImpl) validateToken(tokenString string, want domain.TokenType) (*domain.TokenClaims, error) {
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenMalformed
	}
	if !token.Valid || claims.Type != want || claims.AccountID == 0 {
		return nil, domain.ErrTokenMalformed
	}

	tokenClaims := &domain.TokenClaims{
		ID:        claims.ID,
		AccountID: claims.AccountID,
		SessionID: claims.SessionID,
		Type:      claims.Type,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		tokenClaims.IssuedAt = claims.IssuedAt.Time
	}
	return tokenClaims, nil
}
