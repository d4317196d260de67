package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/infrastructure/metrics"
	"github.com/you/identitysvc/internal/infrastructure/notifications"
	"github.com/you/identitysvc/internal/logging"
)

// IdentityConfig holds the lifecycle policy knobs
type IdentityConfig struct {
	LockoutThreshold int
	LockoutDuration  time.Duration

	SignupRateLimit int
	SignupWindow    time.Duration

	ResetTokenTTL    time.Duration
	ResetLinkBaseURL string

	FaceMaxAttempts int
	FaceWindow      time.Duration

	Now func() time.Time
}

// IdentityServiceImpl implements domain.IdentityService
type IdentityServiceImpl struct {
	accounts    domain.AccountRepository
	sessions    domain.SessionRepository
	otpSvc      domain.OTPService
	passwordSvc domain.PasswordService
	policy      domain.PasswordPolicy
	tokenSvc    domain.TokenService
	sink        domain.NotificationSink
	limiter     domain.RateLimiter
	config      IdentityConfig
	logger      *slog.Logger
	metrics     *metrics.Metrics

	// dummyHash is compared against when the identifier is unknown so the
	// response time does not reveal whether an account exists
	dummyOnce sync.Once
	dummyHash string
}

// NewIdentityService creates a new identity service
func NewIdentityService(
	accounts domain.AccountRepository,
	sessions domain.SessionRepository,
	otpSvc domain.OTPService,
	passwordSvc domain.PasswordService,
	policy domain.PasswordPolicy,
	tokenSvc domain.TokenService,
	sink domain.NotificationSink,
	limiter domain.RateLimiter,
	config IdentityConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) domain.IdentityService {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &IdentityServiceImpl{
		accounts:    accounts,
		sessions:    sessions,
		otpSvc:      otpSvc,
		passwordSvc: passwordSvc,
		policy:      policy,
		tokenSvc:    tokenSvc,
		sink:        sink,
		limiter:     limiter,
		config:      config,
		logger:      logger.With("component", "identity"),
		metrics:     m,
	}
}

// Signup implements domain.IdentityService
func (s *IdentityServiceImpl) Signup(ctx context.Context, req domain.SignupRequest) (*domain.SignupResult, error) {
	result, err := s.signup(ctx, req)
	s.metrics.Signups.WithLabelValues(outcomeLabel(err)).Inc()
	return result, err
}

func (s *IdentityServiceImpl) signup(ctx context.Context, req domain.SignupRequest) (*domain.SignupResult, error) {
	identifier, naturalChannel, err := NormalizeIdentifier(req.Identifier)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Identifier:  identifier,
		DisplayName: req.DisplayName,
		Status:      domain.StatusPendingVerification,
	}
	if naturalChannel == domain.ChannelSMS {
		account.Phone = identifier
	} else {
		account.Email = identifier
		if account.Phone, err = NormalizePhone(req.Phone); err != nil {
			return nil, err
		}
	}

	channel := req.Channel
	if channel == "" {
		channel = naturalChannel
	}
	if !channel.Valid() {
		return nil, domain.ErrInvalidChannel
	}
	if account.Destination(channel) == "" {
		return nil, domain.ErrNoDestination
	}

	if err := s.policy.Validate(req.Secret); err != nil {
		return nil, err
	}

	if _, err := s.accounts.FindByIdentifier(ctx, identifier); err == nil {
		return nil, domain.ErrIdentifierTaken
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.Internal("signup.lookup", err)
	}

	allowed, _, err := s.limiter.Allow(ctx, "signup:"+identifier, s.config.SignupRateLimit, s.config.SignupWindow)
	if err != nil {
		return nil, domain.Internal("signup.ratelimit", err)
	}
	if !allowed {
		return nil, domain.ErrSignupRateLimited
	}

	hashed, err := s.passwordSvc.Hash(req.Secret)
	if err != nil {
		return nil, domain.Internal("signup.hash", err)
	}
	account.PasswordHash = hashed

	// a concurrent signup for the same identifier loses here with ErrIdentifierTaken
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, domain.Internal("signup.create", err)
	}

	code, err := s.otpSvc.Issue(ctx, account, channel, domain.PurposeSignup)
	if err != nil {
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			logging.LogError(ctx, s.logger, "signup rollback failed", delErr, "account_id", account.ID)
		}
		return nil, domain.Internal("signup.issue_otp", err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID, "channel", channel)
	return &domain.SignupResult{Account: account, OTPRef: code.ID}, nil
}

// IssueOTP implements domain.IdentityService
func (s *IdentityServiceImpl) IssueOTP(ctx context.Context, req domain.IssueOTPRequest) (string, error) {
	if !req.Channel.Valid() {
		return "", domain.ErrInvalidChannel
	}
	if !req.Purpose.Valid() {
		return "", domain.ErrInvalidPurpose
	}
	account, err := s.accounts.FindByID(ctx, req.AccountID)
	if err != nil {
		return "", domain.Internal("issue_otp.account", err)
	}
	if req.Purpose == domain.PurposeSignup && account.Status != domain.StatusPendingVerification {
		return "", domain.ErrAlreadyVerified
	}

	code, err := s.otpSvc.Issue(ctx, account, req.Channel, req.Purpose)
	if err != nil {
		return "", err
	}
	return code.ID, nil
}

// VerifyOTP implements domain.IdentityService
func (s *IdentityServiceImpl) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) (*domain.VerifyOTPResult, error) {
	if req.OTPRef == "" || req.Code == "" {
		return nil, domain.ErrInvalidInput.WithMessage("otp reference and code are required")
	}

	record, err := s.otpSvc.Verify(ctx, req.OTPRef, req.Code)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, record.AccountID)
	if err != nil {
		return nil, domain.Internal("verify_otp.account", err)
	}

	update := domain.AccountUpdate{}
	verified := true
	switch record.Purpose {
	case domain.PurposeSignup:
		if record.Channel == domain.ChannelSMS {
			update.PhoneVerified = &verified
			account.PhoneVerified = true
		} else {
			update.EmailVerified = &verified
			account.EmailVerified = true
		}
		if account.Status == domain.StatusPendingVerification {
			active := domain.StatusActive
			update.Status = &active
			account.Status = active
		}
	case domain.PurposePhoneVerify:
		update.PhoneVerified = &verified
		account.PhoneVerified = true
	default:
		return &domain.VerifyOTPResult{Account: account, Purpose: record.Purpose}, nil
	}

	if err := s.accounts.Update(ctx, account.ID, update); err != nil {
		return nil, domain.Internal("verify_otp.update", err)
	}

	if record.Purpose == domain.PurposeSignup {
		s.logger.InfoContext(ctx, "account activated", "account_id", account.ID)
		s.notify(ctx, domain.NewNotification(domain.TemplateWelcome, record.Channel, record.Destination).
			WithAccount(account.ID).
			WithData(notifications.DataDisplayName, account.DisplayName))
	}

	return &domain.VerifyOTPResult{Account: account, Purpose: record.Purpose}, nil
}

// ResendOTP implements domain.IdentityService
func (s *IdentityServiceImpl) ResendOTP(ctx context.Context, otpRef string) (string, error) {
	if otpRef == "" {
		return "", domain.ErrInvalidInput.WithMessage("otp reference is required")
	}
	code, err := s.otpSvc.Resend(ctx, otpRef)
	if err != nil {
		return "", err
	}
	return code.ID, nil
}

// GetAccount implements domain.IdentityService
func (s *IdentityServiceImpl) GetAccount(ctx context.Context, accountID uint) (*domain.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, domain.Internal("get_account", err)
	}
	return account, nil
}

// notify submits a best-effort notification; failures are logged only
func (s *IdentityServiceImpl) notify(ctx context.Context, n *domain.Notification) {
	if err := s.sink.Deliver(ctx, n); err != nil {
		s.metrics.Notifications.WithLabelValues(string(n.Template), "failure").Inc()
		logging.LogWarn(ctx, s.logger, "notification request failed", err,
			"account_id", n.AccountID, "template", n.Template)
		return
	}
	s.metrics.Notifications.WithLabelValues(string(n.Template), "success").Inc()
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(domain.KindOf(err))
}
