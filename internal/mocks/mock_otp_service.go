package mocks

import (
	"context"

	"github.com/you/identitysvc/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	IssueFunc  func(ctx context.Context, account *domain.Account, channel domain.Channel, purpose domain.Purpose) (*domain.VerificationCode, error)
	VerifyFunc func(ctx context.Context, otpRef, code string) (*domain.VerificationCode, error)
	ResendFunc func(ctx context.Context, otpRef string) (*domain.VerificationCode, error)
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Issue issues a code
func (m *MockOTPService) Issue(ctx context.Context, account *domain.Account, channel domain.Channel, purpose domain.Purpose) (*domain.VerificationCode, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, account, channel, purpose)
	}
	// Default behavior: a fixed reference
	return &domain.VerificationCode{ID: "otp_ref", AccountID: account.ID, Channel: channel, Purpose: purpose}, nil
}

// Verify consumes a code
func (m *MockOTPService) Verify(ctx context.Context, otpRef, code string) (*domain.VerificationCode, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, otpRef, code)
	}
	// Default behavior: mismatch
	return nil, domain.ErrOTPMismatch
}

// Resend replaces a code
func (m *MockOTPService) Resend(ctx context.Context, otpRef string) (*domain.VerificationCode, error) {
	if m.ResendFunc != nil {
		return m.ResendFunc(ctx, otpRef)
	}
	return nil, domain.ErrOTPResendLimited
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
