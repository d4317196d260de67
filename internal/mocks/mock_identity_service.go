package mocks

import (
	"context"

	"github.com/you/identitysvc/domain"
)

// MockIdentityService implements domain.IdentityService interface for testing.
// Unset functions fail with an internal error so a test notices unexpected calls.
type MockIdentityService struct {
	SignupFunc                func(ctx context.Context, req domain.SignupRequest) (*domain.SignupResult, error)
	IssueOTPFunc              func(ctx context.Context, req domain.IssueOTPRequest) (string, error)
	VerifyOTPFunc             func(ctx context.Context, req domain.VerifyOTPRequest) (*domain.VerifyOTPResult, error)
	ResendOTPFunc             func(ctx context.Context, otpRef string) (string, error)
	SignInFunc                func(ctx context.Context, req domain.SignInRequest) (*domain.AuthResult, error)
	FaceLoginFunc             func(ctx context.Context, req domain.FaceLoginRequest) (*domain.AuthResult, error)
	EnrollFaceFunc            func(ctx context.Context, accountID uint, template []byte) error
	RequestPasswordResetFunc  func(ctx context.Context, identifier string) error
	CompletePasswordResetFunc func(ctx context.Context, token, newSecret string) error
	LogoutFunc                func(ctx context.Context, accessToken string) error
	VerifyTokenFunc           func(ctx context.Context, accessToken string, requireSession bool) (*domain.Principal, error)
	RefreshSessionFunc        func(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
	GetAccountFunc            func(ctx context.Context, accountID uint) (*domain.Account, error)
}

// NewMockIdentityService creates a new MockIdentityService
func NewMockIdentityService() *MockIdentityService {
	return &MockIdentityService{}
}

var errNotConfigured = domain.NewError(domain.KindInternal, "mock_not_configured", "mock not configured")

func (m *MockIdentityService) Signup(ctx context.Context, req domain.SignupRequest) (*domain.SignupResult, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, req)
	}
	return nil, errNotConfigured
}

func (m *MockIdentityService) IssueOTP(ctx context.Context, req domain.IssueOTPRequest) (string, error) {
	if m.IssueOTPFunc != nil {
		return m.IssueOTPFunc(ctx, req)
	}
	return "", errNotConfigured
}

func (m *MockIdentityService) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*domain.VerifyOTPResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, req)
	}
	return nil, errNotConfigured
}

func (m *MockIdentityService) ResendOTP(ctx context.Context, otpRef string) (string, error) {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, otpRef)
	}
	return "", errNotConfigured
}

func (m *MockIdentityService) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.AuthResult, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, req)
	}
	return nil, errNotConfigured
}

func (m *MockIdentityService) FaceLogin(ctx context.Context, req domain.FaceLoginRequest) (*domain.AuthResult, error) {
	if m.FaceLoginFunc != nil {
		return m.FaceLoginFunc(ctx, req)
	}
	return nil, errNotConfigured
}

func (m *MockIdentityService) EnrollFace(ctx context.Context, accountID uint, template []byte) error {
	if m.EnrollFaceFunc != nil {
		return m.EnrollFaceFunc(ctx, accountID, template)
	}
	return errNotConfigured
}

func (m *MockIdentityService) RequestPasswordReset(ctx context.Context, identifier string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, identifier)
	}
	return errNotConfigured
}

func (m *MockIdentityService) CompletePasswordReset(ctx context.Context, token, newSecret string) error {
	if m.CompletePasswordResetFunc != nil {
		return m.CompletePasswordResetFunc(ctx, token, newSecret)
	}
	return errNotConfigured
}

func (m *MockIdentityService) Logout(ctx context.Context, accessToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, accessToken)
	}
	return errNotConfigured
}

func (m *MockIdentityService) VerifyToken(ctx context.Context, accessToken string, requireSession bool) (*domain.Principal, error) {
	if m.VerifyTokenFunc != nil {
		return m.VerifyTokenFunc(ctx, accessToken, requireSession)
	}
	return nil, domain.ErrTokenMalformed
}

func (m *MockIdentityService) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if m.RefreshSessionFunc != nil {
		return m.RefreshSessionFunc(ctx, refreshToken)
	}
	return nil, errNotConfigured
}

func (m *MockIdentityService) GetAccount(ctx context.Context, accountID uint) (*domain.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, accountID)
	}
	return nil, domain.ErrAccountNotFound
}

// Compile-time interface compliance verification
var _ domain.IdentityService = (*MockIdentityService)(nil)
