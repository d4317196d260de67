package domain

import (
	"errors"

	"github.com/samber/oops"
)

// Kind is the stable, machine-readable class of a failure
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindLocked       Kind = "locked"
	KindNotFound     Kind = "not_found"
	KindRateLimited  Kind = "rate_limited"
	KindExpired      Kind = "expired"
	KindInternal     Kind = "internal"
)

// Error is a typed failure returned by every identity operation.
// Message is safe to show to callers; Err holds internal detail for logs only.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

// NewError creates a typed error
func NewError(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind and Reason, so a sentinel matches any error built from it.
// A target with an empty Reason matches every error of its Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Reason == "" || e.Reason == t.Reason
}

// WithMessage returns a copy of e carrying a more specific message
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// Internal wraps an unexpected store, signing or transport failure.
// Errors that are already typed pass through unmodified.
func Internal(operation string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{
		Kind:    KindInternal,
		Reason:  "internal",
		Message: "internal error",
		Err: oops.
			In("identity").
			Code("IDENTITY_INTERNAL").
			With("operation", operation).
			Wrap(err),
	}
}

// KindOf classifies err; untyped errors are internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a typed error of the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Input errors
var (
	ErrInvalidInput      = NewError(KindInvalidInput, "invalid_input", "invalid input")
	ErrInvalidIdentifier = NewError(KindInvalidInput, "invalid_identifier", "identifier must be a valid email address or E.164 phone number")
	ErrInvalidChannel    = NewError(KindInvalidInput, "invalid_channel", "unsupported delivery channel")
	ErrInvalidPurpose    = NewError(KindInvalidInput, "invalid_purpose", "unsupported verification purpose")
	ErrWeakPassword      = NewError(KindInvalidInput, "weak_password", "password does not satisfy the strength policy")
	ErrNoDestination     = NewError(KindInvalidInput, "no_destination", "account has no address for the requested channel")
)

// Account errors
var (
	ErrAccountNotFound    = NewError(KindNotFound, "account_not_found", "account not found")
	ErrIdentifierTaken    = NewError(KindConflict, "identifier_taken", "identifier is already registered")
	ErrInvalidCredentials = NewError(KindUnauthorized, "invalid_credentials", "invalid credentials")
	ErrAccountNotVerified = NewError(KindForbidden, "account_not_verified", "account is not verified; complete verification before signing in")
	ErrAccountInactive    = NewError(KindForbidden, "account_inactive", "account is not active")
	ErrAccountLocked      = NewError(KindLocked, "account_locked", "account is temporarily locked; try again later")
	ErrSignupRateLimited  = NewError(KindRateLimited, "signup_rate_limited", "too many signup attempts; try again later")
	ErrBiometricNoMatch   = NewError(KindUnauthorized, "biometric_no_match", "biometric template not recognized")
	ErrFaceRateLimited    = NewError(KindRateLimited, "face_rate_limited", "too many biometric attempts; try again later")
	ErrResetTokenInvalid  = NewError(KindExpired, "reset_token_invalid", "reset token is invalid or has expired")
	ErrAlreadyVerified    = NewError(KindConflict, "already_verified", "account is already verified")
	ErrEmptyTemplate      = NewError(KindInvalidInput, "biometric_template_empty", "biometric template cannot be empty")
	ErrBiometricTaken     = NewError(KindConflict, "biometric_taken", "biometric template is already enrolled")
)

// OTP errors
var (
	ErrOTPNotFound      = NewError(KindNotFound, "otp_not_found", "verification code not found")
	ErrOTPUsed          = NewError(KindExpired, "otp_used", "verification code has already been used")
	ErrOTPExpired       = NewError(KindExpired, "otp_expired", "verification code has expired")
	ErrOTPMaxAttempts   = NewError(KindRateLimited, "otp_max_attempts", "maximum verification attempts exceeded")
	ErrOTPMismatch      = NewError(KindInvalidInput, "otp_mismatch", "invalid verification code")
	ErrOTPResendLimited = NewError(KindRateLimited, "otp_resend_limited", "please wait before requesting a new code")
)

// Token and session errors
var (
	ErrTokenMalformed  = NewError(KindUnauthorized, "token_malformed", "malformed token")
	ErrTokenExpired    = NewError(KindExpired, "token_expired", "token has expired")
	ErrSessionRevoked  = NewError(KindUnauthorized, "session_revoked", "session has been revoked")
	ErrSessionNotFound = NewError(KindNotFound, "session_not_found", "session not found")
)
