package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/infrastructure/metrics"
	"github.com/you/identitysvc/internal/infrastructure/notifications"
	"github.com/you/identitysvc/internal/logging"
)

// OTPServiceImpl implements domain.OTPService on top of the code ledger
type OTPServiceImpl struct {
	codes    domain.VerificationCodeRepository
	accounts domain.AccountRepository
	sink     domain.NotificationSink
	config   OTPConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration

	// TestBypass accepts an all-zero code; honored only in otpbypass builds
	// outside production
	TestBypass bool
	Production bool

	Now func() time.Time
}

// NewOTPService creates a new OTP service
func NewOTPService(
	codes domain.VerificationCodeRepository,
	accounts domain.AccountRepository,
	sink domain.NotificationSink,
	config OTPConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) domain.OTPService {
	if config.Length <= 0 {
		config.Length = 6
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &OTPServiceImpl{
		codes:    codes,
		accounts: accounts,
		sink:     sink,
		config:   config,
		logger:   logger.With("component", "otp"),
		metrics:  m,
	}
}

// bypassAllowed reports whether the test-mode code may be honored
func (s *OTPServiceImpl) bypassAllowed() bool {
	return otpBypassCompiledIn && s.config.TestBypass && !s.config.Production
}

func (s *OTPServiceImpl) bypassCode() string {
	return strings.Repeat("0", s.config.Length)
}

// Issue implements domain.OTPService
func (s *OTPServiceImpl) Issue(ctx context.Context, account *domain.Account, channel domain.Channel, purpose domain.Purpose) (*domain.VerificationCode, error) {
	if !channel.Valid() {
		return nil, domain.ErrInvalidChannel
	}
	if !purpose.Valid() {
		return nil, domain.ErrInvalidPurpose
	}
	destination := account.Destination(channel)
	if destination == "" {
		return nil, domain.ErrNoDestination
	}

	code, err := generateSecureCode(s.config.Length)
	if err != nil {
		return nil, domain.Internal("otp.generate", err)
	}

	now := s.config.Now()
	record := &domain.VerificationCode{
		ID:          ulid.Make().String(),
		AccountID:   account.ID,
		Destination: destination,
		Channel:     channel,
		Purpose:     purpose,
		ExpiresAt:   now.Add(s.config.TTL),
		MaxAttempts: s.config.MaxAttempts,
		CreatedAt:   now,
	}
	record.CodeHash = hashCode(record.ID, code)

	if err := s.codes.Create(ctx, record); err != nil {
		return nil, domain.Internal("otp.store", err)
	}
	s.metrics.OTPIssued.WithLabelValues(string(purpose), string(channel)).Inc()

	n := domain.NewNotification(domain.TemplateVerificationCode, channel, destination).
		WithAccount(account.ID).
		WithData(notifications.DataCode, code).
		WithData(notifications.DataPurpose, string(purpose)).
		WithData(notifications.DataTTLMinutes, strconv.Itoa(int(s.config.TTL.Minutes())))
	if err := s.sink.Deliver(ctx, n); err != nil {
		// the code stays valid; the user can ask for a resend
		s.metrics.Notifications.WithLabelValues(string(n.Template), "failure").Inc()
		logging.LogWarn(ctx, s.logger, "verification code delivery request failed", err,
			"account_id", account.ID, "otp_ref", record.ID)
	} else {
		s.metrics.Notifications.WithLabelValues(string(n.Template), "success").Inc()
	}

	return record, nil
}

// Verify implements domain.OTPService. Checks run in a fixed order so each
// failure has a distinct reason: unknown, used, expired, attempts, mismatch.
func (s *OTPServiceImpl) Verify(ctx context.Context, otpRef, code string) (*domain.VerificationCode, error) {
	record, err := s.verify(ctx, otpRef, code)
	s.metrics.OTPVerified.WithLabelValues(verifyOutcome(err)).Inc()
	return record, err
}

func (s *OTPServiceImpl) verify(ctx context.Context, otpRef, code string) (*domain.VerificationCode, error) {
	record, err := s.codes.FindByID(ctx, otpRef)
	if err != nil {
		return nil, domain.Internal("otp.find", err)
	}
	if record.Used {
		return nil, domain.ErrOTPUsed
	}
	now := s.config.Now()
	if record.IsExpiredAt(now) {
		return nil, domain.ErrOTPExpired
	}

	// Reserve the attempt before comparing so concurrent guesses cannot
	// exceed the budget
	attempts, err := s.codes.IncrementAttempts(ctx, record.ID)
	if err != nil {
		return nil, domain.Internal("otp.attempt", err)
	}
	record.Attempts = attempts
	if attempts > record.MaxAttempts {
		return nil, domain.ErrOTPMaxAttempts
	}

	matched := digestsEqual(hashCode(record.ID, strings.TrimSpace(code)), record.CodeHash)
	if !matched && s.bypassAllowed() && code == s.bypassCode() {
		s.logger.WarnContext(ctx, "verification bypass code accepted", "otp_ref", record.ID)
		matched = true
	}
	if !matched {
		return nil, domain.ErrOTPMismatch
	}

	won, err := s.codes.MarkUsed(ctx, record.ID, now)
	if err != nil {
		return nil, domain.Internal("otp.consume", err)
	}
	if !won {
		return nil, domain.ErrOTPUsed
	}
	record.Used = true
	record.UsedAt = &now
	return record, nil
}

// Resend implements domain.OTPService. The previous code is superseded and a
// fresh one is issued for the same account, channel and purpose.
func (s *OTPServiceImpl) Resend(ctx context.Context, otpRef string) (*domain.VerificationCode, error) {
	previous, err := s.codes.FindByID(ctx, otpRef)
	if err != nil {
		return nil, domain.Internal("otp.find", err)
	}
	if previous.Used {
		return nil, domain.ErrOTPUsed
	}
	if s.config.Now().Sub(previous.CreatedAt) < s.config.ResendWindow {
		return nil, domain.ErrOTPResendLimited
	}

	account, err := s.accounts.FindByID(ctx, previous.AccountID)
	if err != nil {
		return nil, domain.Internal("otp.account", err)
	}
	if previous.Purpose == domain.PurposeSignup && account.Status != domain.StatusPendingVerification {
		return nil, domain.ErrAlreadyVerified
	}

	// only one concurrent resend may supersede a given code
	won, err := s.codes.MarkUsed(ctx, previous.ID, s.config.Now())
	if err != nil {
		return nil, domain.Internal("otp.supersede", err)
	}
	if !won {
		return nil, domain.ErrOTPUsed
	}

	record, err := s.Issue(ctx, account, previous.Channel, previous.Purpose)
	if err != nil {
		// hand the superseded code back so the caller is never left without one
		unused := false
		if rerr := s.codes.Update(ctx, previous.ID, domain.VerificationCodeUpdate{Used: &unused}); rerr != nil {
			logging.LogWarn(ctx, s.logger, "superseded code restore failed", rerr,
				"account_id", account.ID, "otp_ref", previous.ID)
		}
		return nil, err
	}
	return record, nil
}

func verifyOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindInternal {
		return de.Reason
	}
	return "error"
}
