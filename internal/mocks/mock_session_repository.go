package mocks

import (
	"context"

	"github.com/you/identitysvc/domain"
)

// MockSessionRepository implements domain.SessionRepository interface for testing
type MockSessionRepository struct {
	CreateFunc                  func(ctx context.Context, session *domain.Session) error
	FindByAccessCredentialFunc  func(ctx context.Context, accessTokenHash string) (*domain.Session, error)
	FindByRefreshCredentialFunc func(ctx context.Context, refreshTokenHash string) (*domain.Session, error)
	UpdateManyByCredentialFunc  func(ctx context.Context, accessTokenHash string, update domain.SessionUpdate) (int64, error)
	UpdateFunc                  func(ctx context.Context, id string, update domain.SessionUpdate) error
	DeactivateByAccountFunc     func(ctx context.Context, accountID uint) (int64, error)
}

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

// Create creates a new session
func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	// Default behavior: success
	return nil
}

// FindByAccessCredential finds a session by access token digest
func (m *MockSessionRepository) FindByAccessCredential(ctx context.Context, accessTokenHash string) (*domain.Session, error) {
	if m.FindByAccessCredentialFunc != nil {
		return m.FindByAccessCredentialFunc(ctx, accessTokenHash)
	}
	// Default behavior: not found
	return nil, domain.ErrSessionNotFound
}

// FindByRefreshCredential finds a session by refresh token digest
func (m *MockSessionRepository) FindByRefreshCredential(ctx context.Context, refreshTokenHash string) (*domain.Session, error) {
	if m.FindByRefreshCredentialFunc != nil {
		return m.FindByRefreshCredentialFunc(ctx, refreshTokenHash)
	}
	// Default behavior: not found
	return nil, domain.ErrSessionNotFound
}

// UpdateManyByCredential updates every session bound to an access token digest
func (m *MockSessionRepository) UpdateManyByCredential(ctx context.Context, accessTokenHash string, update domain.SessionUpdate) (int64, error) {
	if m.UpdateManyByCredentialFunc != nil {
		return m.UpdateManyByCredentialFunc(ctx, accessTokenHash, update)
	}
	// Default behavior: one session updated
	return 1, nil
}

// Update applies a partial update to one session
func (m *MockSessionRepository) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, update)
	}
	// Default behavior: success
	return nil
}

// DeactivateByAccount deactivates all sessions of an account
func (m *MockSessionRepository) DeactivateByAccount(ctx context.Context, accountID uint) (int64, error) {
	if m.DeactivateByAccountFunc != nil {
		return m.DeactivateByAccountFunc(ctx, accountID)
	}
	// Default behavior: nothing to deactivate
	return 0, nil
}

// Compile-time interface compliance verification
var _ domain.SessionRepository = (*MockSessionRepository)(nil)
