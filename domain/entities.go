package domain

import "time"

// AccountStatus is the lifecycle state of an Account
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "PENDING_VERIFICATION"
	StatusActive              AccountStatus = "ACTIVE"
	StatusSuspended           AccountStatus = "SUSPENDED"
)

// Channel is the side channel a code or link is delivered over
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// Valid reports whether c is a known channel
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelSMS
}

// Purpose is what a verification code proves
type Purpose string

const (
	PurposeSignup        Purpose = "SIGNUP"
	PurposeLogin         Purpose = "LOGIN"
	PurposePasswordReset Purpose = "PASSWORD_RESET"
	PurposePhoneVerify   Purpose = "PHONE_VERIFY"
)

// Valid reports whether p is a known purpose
func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposePasswordReset, PurposePhoneVerify:
		return true
	}
	return false
}

// Account represents a registered identity
type Account struct {
	ID                  uint
	Identifier          string
	Email               string
	Phone               string
	PasswordHash        string
	DisplayName         string
	Status              AccountStatus
	EmailVerified       bool
	PhoneVerified       bool
	FailedAttempts      int
	LockoutUntil        *time.Time
	ResetTokenHash      string
	ResetTokenExpiresAt *time.Time
	BiometricHash       string
	LastLoginAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsActive reports whether the account may hold sessions
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// IsLockedAt reports whether a sign-in lockout is in force at now
func (a *Account) IsLockedAt(now time.Time) bool {
	return a.LockoutUntil != nil && now.Before(*a.LockoutUntil)
}

// Destination returns the address a channel delivers to for this account
func (a *Account) Destination(ch Channel) string {
	if ch == ChannelSMS {
		return a.Phone
	}
	return a.Email
}

// AccountUpdate carries the mutable account attributes; nil fields are left untouched
type AccountUpdate struct {
	PasswordHash     *string
	DisplayName      *string
	Phone            *string
	Status           *AccountStatus
	EmailVerified    *bool
	PhoneVerified    *bool
	FailedAttempts   *int
	LockoutUntil     *time.Time
	ClearLockout     bool
	ResetTokenHash   *string
	ResetTokenExpiry *time.Time
	ClearResetToken  bool
	BiometricHash    *string
	LastLoginAt      *time.Time
}

// VerificationCode is a one-time code record in the OTP ledger
type VerificationCode struct {
	ID          string
	AccountID   uint
	Destination string
	CodeHash    string
	Channel     Channel
	Purpose     Purpose
	ExpiresAt   time.Time
	Attempts    int
	MaxAttempts int
	Used        bool
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// IsExpiredAt reports whether the code can no longer be consumed because of its TTL
func (c *VerificationCode) IsExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// VerificationCodeUpdate carries the mutable code attributes; nil fields are left untouched
type VerificationCodeUpdate struct {
	Attempts *int
	Used     *bool
	UsedAt   *time.Time
}

// DeviceInfo describes the client a session was issued to
type DeviceInfo struct {
	DeviceID  string
	Platform  string
	UserAgent string
	IPAddress string
}

// Session represents a server-tracked credential pair
type Session struct {
	ID               string
	AccountID        uint
	AccessTokenHash  string
	RefreshTokenHash string
	Device           DeviceInfo
	IsActive         bool
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsValidAt reports whether the session record itself is usable at now
func (s *Session) IsValidAt(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// SessionUpdate carries the mutable session attributes; nil fields are left untouched
type SessionUpdate struct {
	IsActive        *bool
	AccessTokenHash *string
}

// SignupRequest represents a registration request
type SignupRequest struct {
	Identifier  string
	Secret      string
	DisplayName string
	Phone       string
	Channel     Channel
}

// SignupResult is returned after a successful signup
type SignupResult struct {
	Account *Account
	OTPRef  string
}

// IssueOTPRequest represents an OTP issuance for an existing account
type IssueOTPRequest struct {
	AccountID uint
	Channel   Channel
	Purpose   Purpose
}

// VerifyOTPRequest represents an OTP submission
type VerifyOTPRequest struct {
	OTPRef string
	Code   string
}

// VerifyOTPResult is returned after a code is consumed
type VerifyOTPResult struct {
	Account *Account
	Purpose Purpose
}

// SignInRequest represents password credentials
type SignInRequest struct {
	Identifier string
	Secret     string
	Device     DeviceInfo
}

// FaceLoginRequest represents a biometric login attempt
type FaceLoginRequest struct {
	Template []byte
	Device   DeviceInfo
}

// AuthResult represents authentication outcome
type AuthResult struct {
	Account          *Account
	AccessToken      string
	RefreshToken     string
	SessionID        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Principal is the resolved identity behind a verified bearer credential
type Principal struct {
	Account   *Account
	Session   *Session
	SessionID string
}
