//go:build !otpbypass

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/infrastructure/metrics"
	"github.com/you/identitysvc/internal/logging"
	"github.com/you/identitysvc/internal/mocks"
)

func TestOTPService_BypassUnavailableInRegularBuilds(t *testing.T) {
	now := time.Now()
	codes := mocks.NewMockVerificationCodeRepository()
	codes.FindByIDFunc = func(ctx context.Context, id string) (*domain.VerificationCode, error) {
		return &domain.VerificationCode{
			ID:          id,
			CodeHash:    hashCode(id, "123456"),
			ExpiresAt:   now.Add(time.Minute),
			MaxAttempts: 4,
		}, nil
	}
	svc := NewOTPService(codes, mocks.NewMockAccountRepository(), mocks.NewMockNotificationSink(),
		OTPConfig{Length: 6, TTL: time.Minute, MaxAttempts: 4, TestBypass: true},
		logging.Discard(), metrics.NewNop())

	_, err := svc.Verify(context.Background(), "ref", "000000")
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)
}
