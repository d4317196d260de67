package domain

import (
	"context"
	"time"
)

// AccountRepository defines credential store operations
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)
	FindByID(ctx context.Context, id uint) (*Account, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error)
	FindByBiometricHash(ctx context.Context, biometricHash string) (*Account, error)
	Update(ctx context.Context, id uint, update AccountUpdate) error
	Delete(ctx context.Context, id uint) error

	// RecordFailedLogin atomically counts one failed sign-in at now and, once the
	// count reaches threshold, locks the account for lockout. A lockout that has
	// already elapsed restarts the count. It returns the account as stored.
	RecordFailedLogin(ctx context.Context, id uint, threshold int, now time.Time, lockout time.Duration) (*Account, error)

	// CompletePasswordReset replaces the password hash only while tokenHash is
	// still the stored reset token, clearing the token, its expiry and any lockout.
	// Returns ErrResetTokenInvalid if the token was already consumed.
	CompletePasswordReset(ctx context.Context, id uint, tokenHash, passwordHash string) error
}

// VerificationCodeRepository defines OTP ledger operations
type VerificationCodeRepository interface {
	Create(ctx context.Context, code *VerificationCode) error
	FindByID(ctx context.Context, id string) (*VerificationCode, error)
	Update(ctx context.Context, id string, update VerificationCodeUpdate) error

	// IncrementAttempts atomically adds one attempt and returns the new count
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// MarkUsed consumes the code; only the first caller gets true
	MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error)
}

// SessionRepository defines session store operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByAccessCredential(ctx context.Context, accessTokenHash string) (*Session, error)
	FindByRefreshCredential(ctx context.Context, refreshTokenHash string) (*Session, error)
	UpdateManyByCredential(ctx context.Context, accessTokenHash string, update SessionUpdate) (int64, error)
	Update(ctx context.Context, id string, update SessionUpdate) error
	DeactivateByAccount(ctx context.Context, accountID uint) (int64, error)
}

// IdentityService defines the caller-facing identity operations
type IdentityService interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResult, error)
	IssueOTP(ctx context.Context, req IssueOTPRequest) (string, error)
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*VerifyOTPResult, error)
	ResendOTP(ctx context.Context, otpRef string) (string, error)
	SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error)
	FaceLogin(ctx context.Context, req FaceLoginRequest) (*AuthResult, error)
	EnrollFace(ctx context.Context, accountID uint, template []byte) error
	RequestPasswordReset(ctx context.Context, identifier string) error
	CompletePasswordReset(ctx context.Context, token, newSecret string) error
	Logout(ctx context.Context, accessToken string) error
	VerifyToken(ctx context.Context, accessToken string, requireSession bool) (*Principal, error)
	RefreshSession(ctx context.Context, refreshToken string) (*AuthResult, error)
	GetAccount(ctx context.Context, accountID uint) (*Account, error)
}

// OTPService defines one-time code issuance and consumption
type OTPService interface {
	Issue(ctx context.Context, account *Account, channel Channel, purpose Purpose) (*VerificationCode, error)
	Verify(ctx context.Context, otpRef, code string) (*VerificationCode, error)
	Resend(ctx context.Context, otpRef string) (*VerificationCode, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// PasswordPolicy validates secrets before they are hashed
type PasswordPolicy interface {
	Validate(password string) error
}

// TokenService defines token operations
type TokenService interface {
	GenerateAccessToken(accountID uint, sessionID string) (string, time.Time, error)
	GenerateRefreshToken(accountID uint, sessionID string) (string, time.Time, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
	ValidateRefreshToken(token string) (*TokenClaims, error)
}

// NotificationSink accepts delivery requests. Submission is the success
// boundary; delivery happens elsewhere.
type NotificationSink interface {
	Deliver(ctx context.Context, n *Notification) error
}

// RateLimiter counts events per key inside a fixed window
type RateLimiter interface {
	// Allow records one event for key and reports whether it is within limit.
	// When it is not, retryAfter is the remaining window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)

	// Exceeded reports whether key is already over limit without recording an event
	Exceeded(ctx context.Context, key string, limit int) (exceeded bool, retryAfter time.Duration, err error)
}

// TokenType distinguishes access from refresh credentials
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims represents JWT token claims
type TokenClaims struct {
	ID        string    `json:"jti"`
	AccountID uint      `json:"account_id"`
	SessionID string    `json:"session_id"`
	Type      TokenType `json:"typ"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}
