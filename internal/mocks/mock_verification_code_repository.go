package mocks

import (
	"context"
	"time"

	"github.com/you/identitysvc/domain"
)

// MockVerificationCodeRepository implements domain.VerificationCodeRepository interface for testing
type MockVerificationCodeRepository struct {
	CreateFunc            func(ctx context.Context, code *domain.VerificationCode) error
	FindByIDFunc          func(ctx context.Context, id string) (*domain.VerificationCode, error)
	UpdateFunc            func(ctx context.Context, id string, update domain.VerificationCodeUpdate) error
	IncrementAttemptsFunc func(ctx context.Context, id string) (int, error)
	MarkUsedFunc          func(ctx context.Context, id string, usedAt time.Time) (bool, error)
}

// NewMockVerificationCodeRepository creates a new mock with default behaviors
func NewMockVerificationCodeRepository() *MockVerificationCodeRepository {
	return &MockVerificationCodeRepository{}
}

// Create stores a code record
func (m *MockVerificationCodeRepository) Create(ctx context.Context, code *domain.VerificationCode) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, code)
	}
	return nil
}

// FindByID loads a code record
func (m *MockVerificationCodeRepository) FindByID(ctx context.Context, id string) (*domain.VerificationCode, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrOTPNotFound
}

// Update applies a partial update
func (m *MockVerificationCodeRepository) Update(ctx context.Context, id string, update domain.VerificationCodeUpdate) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, update)
	}
	return nil
}

// IncrementAttempts reserves one attempt
func (m *MockVerificationCodeRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, id)
	}
	return 1, nil
}

// MarkUsed consumes the code
func (m *MockVerificationCodeRepository) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, id, usedAt)
	}
	return true, nil
}

var _ domain.VerificationCodeRepository = (*MockVerificationCodeRepository)(nil)
