package mocks

import (
	"context"
	"time"

	"github.com/you/identitysvc/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	CreateFunc                func(ctx context.Context, account *domain.Account) error
	FindByIdentifierFunc      func(ctx context.Context, identifier string) (*domain.Account, error)
	FindByIDFunc              func(ctx context.Context, id uint) (*domain.Account, error)
	FindByResetTokenHashFunc  func(ctx context.Context, tokenHash string) (*domain.Account, error)
	FindByBiometricHashFunc   func(ctx context.Context, biometricHash string) (*domain.Account, error)
	UpdateFunc                func(ctx context.Context, id uint, update domain.AccountUpdate) error
	DeleteFunc                func(ctx context.Context, id uint) error
	RecordFailedLoginFunc     func(ctx context.Context, id uint, threshold int, now time.Time, lockout time.Duration) (*domain.Account, error)
	CompletePasswordResetFunc func(ctx context.Context, id uint, tokenHash, passwordHash string) error
}

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// Create creates a new account
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	// Default behavior: success
	return nil
}

// FindByIdentifier finds an account by its normalized identifier
func (m *MockAccountRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	if m.FindByIdentifierFunc != nil {
		return m.FindByIdentifierFunc(ctx, identifier)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByID finds an account by ID
func (m *MockAccountRepository) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByResetTokenHash finds the account holding a reset token digest
func (m *MockAccountRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	if m.FindByResetTokenHashFunc != nil {
		return m.FindByResetTokenHashFunc(ctx, tokenHash)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByBiometricHash finds the account enrolled with a template digest
func (m *MockAccountRepository) FindByBiometricHash(ctx context.Context, biometricHash string) (*domain.Account, error) {
	if m.FindByBiometricHashFunc != nil {
		return m.FindByBiometricHashFunc(ctx, biometricHash)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// Update applies a partial update
func (m *MockAccountRepository) Update(ctx context.Context, id uint, update domain.AccountUpdate) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, update)
	}
	// Default behavior: success
	return nil
}

// Delete removes an account
func (m *MockAccountRepository) Delete(ctx context.Context, id uint) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	// Default behavior: success
	return nil
}

// RecordFailedLogin counts a failed sign-in
func (m *MockAccountRepository) RecordFailedLogin(ctx context.Context, id uint, threshold int, now time.Time, lockout time.Duration) (*domain.Account, error) {
	if m.RecordFailedLoginFunc != nil {
		return m.RecordFailedLoginFunc(ctx, id, threshold, now, lockout)
	}
	// Default behavior: one failure, no lockout
	return &domain.Account{ID: id, FailedAttempts: 1}, nil
}

// CompletePasswordReset swaps the password hash for a valid token
func (m *MockAccountRepository) CompletePasswordReset(ctx context.Context, id uint, tokenHash, passwordHash string) error {
	if m.CompletePasswordResetFunc != nil {
		return m.CompletePasswordResetFunc(ctx, id, tokenHash, passwordHash)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)
