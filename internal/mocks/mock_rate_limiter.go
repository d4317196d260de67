package mocks

import (
	"context"
	"time"

	"github.com/you/identitysvc/domain"
)

// MockRateLimiter implements domain.RateLimiter interface for testing
type MockRateLimiter struct {
	AllowFunc    func(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
	ExceededFunc func(ctx context.Context, key string, limit int) (bool, time.Duration, error)
}

// NewMockRateLimiter creates a limiter that allows everything
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

// Allow records an event
func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, key, limit, window)
	}
	return true, 0, nil
}

// Exceeded peeks at the counter
func (m *MockRateLimiter) Exceeded(ctx context.Context, key string, limit int) (bool, time.Duration, error) {
	if m.ExceededFunc != nil {
		return m.ExceededFunc(ctx, key, limit)
	}
	return false, 0, nil
}

var _ domain.RateLimiter = (*MockRateLimiter)(nil)
