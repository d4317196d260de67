package mocks

import (
	"context"
	"sync"

	"github.com/you/identitysvc/domain"
)

// MockNotificationSink implements domain.NotificationSink and records every
// submitted notification
type MockNotificationSink struct {
	DeliverFunc func(ctx context.Context, n *domain.Notification) error

	mu        sync.Mutex
	delivered []*domain.Notification
}

// NewMockNotificationSink creates a sink that accepts everything
func NewMockNotificationSink() *MockNotificationSink {
	return &MockNotificationSink{}
}

// Deliver records n and returns DeliverFunc's result
func (m *MockNotificationSink) Deliver(ctx context.Context, n *domain.Notification) error {
	m.mu.Lock()
	m.delivered = append(m.delivered, n)
	m.mu.Unlock()

	if m.DeliverFunc != nil {
		return m.DeliverFunc(ctx, n)
	}
	return nil
}

// Delivered returns a copy of everything submitted so far
func (m *MockNotificationSink) Delivered() []*domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Notification(nil), m.delivered...)
}

// Last returns the most recent notification of the given template, or nil
func (m *MockNotificationSink) Last(template domain.TemplateKind) *domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.delivered) - 1; i >= 0; i-- {
		if m.delivered[i].Template == template {
			return m.delivered[i]
		}
	}
	return nil
}

var _ domain.NotificationSink = (*MockNotificationSink)(nil)
