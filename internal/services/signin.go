package services

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/logging"
)

// SignIn implements domain.IdentityService
func (s *IdentityServiceImpl) SignIn(ctx context.Context, req domain.SignInRequest) (*domain.AuthResult, error) {
	result, err := s.signIn(ctx, req)
	s.metrics.SignIns.WithLabelValues("password", outcomeLabel(err)).Inc()
	return result, err
}

func (s *IdentityServiceImpl) signIn(ctx context.Context, req domain.SignInRequest) (*domain.AuthResult, error) {
	identifier, _, err := NormalizeIdentifier(req.Identifier)
	if err != nil {
		s.burnPasswordCheck(req.Secret)
		return nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.burnPasswordCheck(req.Secret)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal("signin.lookup", err)
	}

	if err := requireActive(account); err != nil {
		return nil, err
	}

	now := s.config.Now()
	if account.IsLockedAt(now) {
		return nil, domain.ErrAccountLocked
	}

	if !s.passwordSvc.Verify(account.PasswordHash, req.Secret) {
		return nil, s.recordFailedSignIn(ctx, account)
	}

	zero := 0
	if err := s.accounts.Update(ctx, account.ID, domain.AccountUpdate{
		FailedAttempts: &zero,
		ClearLockout:   true,
		LastLoginAt:    &now,
	}); err != nil {
		return nil, domain.Internal("signin.reset_counter", err)
	}
	account.FailedAttempts = 0
	account.LockoutUntil = nil
	account.LastLoginAt = &now

	return s.mintSession(ctx, account, req.Device)
}

// recordFailedSignIn counts a wrong secret and locks the account once the
// threshold is reached. Whether an elapsed lockout restarts the count is decided
// by the store, never by the caller's snapshot.
func (s *IdentityServiceImpl) recordFailedSignIn(ctx context.Context, account *domain.Account) error {
	now := s.config.Now()
	updated, err := s.accounts.RecordFailedLogin(ctx, account.ID, s.config.LockoutThreshold, now, s.config.LockoutDuration)
	if err != nil {
		return domain.Internal("signin.record_failure", err)
	}
	if updated.IsLockedAt(now) && updated.FailedAttempts == s.config.LockoutThreshold {
		s.metrics.Lockouts.Inc()
		s.logger.WarnContext(ctx, "account locked after repeated sign-in failures",
			"account_id", account.ID, "until", updated.LockoutUntil)
	}
	return domain.ErrInvalidCredentials
}

// burnPasswordCheck spends the same work as a real comparison
func (s *IdentityServiceImpl) burnPasswordCheck(secret string) {
	s.dummyOnce.Do(func() {
		hash, err := s.passwordSvc.Hash("identity-dummy-secret")
		if err != nil {
			logging.LogWarn(context.Background(), s.logger, "dummy hash generation failed", err)
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		s.passwordSvc.Verify(s.dummyHash, secret)
	}
}

// requireActive maps non-active states to the forbidden errors callers act on
func requireActive(account *domain.Account) error {
	switch account.Status {
	case domain.StatusActive:
		return nil
	case domain.StatusPendingVerification:
		return domain.ErrAccountNotVerified
	default:
		return domain.ErrAccountInactive
	}
}

// FaceLogin implements domain.IdentityService
func (s *IdentityServiceImpl) FaceLogin(ctx context.Context, req domain.FaceLoginRequest) (*domain.AuthResult, error) {
	result, err := s.faceLogin(ctx, req)
	s.metrics.SignIns.WithLabelValues("face", outcomeLabel(err)).Inc()
	return result, err
}

func (s *IdentityServiceImpl) faceLogin(ctx context.Context, req domain.FaceLoginRequest) (*domain.AuthResult, error) {
	if len(req.Template) == 0 {
		return nil, domain.ErrEmptyTemplate
	}

	limitKeys := faceLimitKeys(req.Device)
	for _, key := range limitKeys {
		exceeded, _, err := s.limiter.Exceeded(ctx, key, s.config.FaceMaxAttempts)
		if err != nil {
			return nil, domain.Internal("face.ratelimit", err)
		}
		if exceeded {
			return nil, domain.ErrFaceRateLimited
		}
	}

	account, err := s.accounts.FindByBiometricHash(ctx, hashTemplate(req.Template))
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.Internal("face.lookup", err)
		}
		for _, key := range limitKeys {
			if _, _, err := s.limiter.Allow(ctx, key, s.config.FaceMaxAttempts, s.config.FaceWindow); err != nil {
				return nil, domain.Internal("face.ratelimit", err)
			}
		}
		return nil, domain.ErrBiometricNoMatch
	}

	if err := requireActive(account); err != nil {
		return nil, err
	}
	now := s.config.Now()
	if account.IsLockedAt(now) {
		return nil, domain.ErrAccountLocked
	}

	if err := s.accounts.Update(ctx, account.ID, domain.AccountUpdate{LastLoginAt: &now}); err != nil {
		logging.LogWarn(ctx, s.logger, "last login stamp failed", err, "account_id", account.ID)
	} else {
		account.LastLoginAt = &now
	}

	return s.mintSession(ctx, account, req.Device)
}

// EnrollFace implements domain.IdentityService
func (s *IdentityServiceImpl) EnrollFace(ctx context.Context, accountID uint, template []byte) error {
	if len(template) == 0 {
		return domain.ErrEmptyTemplate
	}
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return domain.Internal("face_enroll.account", err)
	}
	if err := requireActive(account); err != nil {
		return err
	}

	hash := hashTemplate(template)
	if owner, err := s.accounts.FindByBiometricHash(ctx, hash); err == nil {
		if owner.ID != account.ID {
			return domain.ErrBiometricTaken
		}
		return nil
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Internal("face_enroll.lookup", err)
	}

	if err := s.accounts.Update(ctx, account.ID, domain.AccountUpdate{BiometricHash: &hash}); err != nil {
		return domain.Internal("face_enroll.update", err)
	}
	s.logger.InfoContext(ctx, "biometric template enrolled", "account_id", account.ID)
	return nil
}

// faceLimitKeys names the counters a biometric miss is charged to. The network
// address is always counted since the device id is caller-supplied.
func faceLimitKeys(d domain.DeviceInfo) []string {
	ip := d.IPAddress
	if ip == "" {
		ip = "unknown"
	}
	keys := []string{"face:ip:" + ip}
	if d.DeviceID != "" {
		keys = append(keys, "face:device:"+d.DeviceID)
	}
	return keys
}

// mintSession issues a credential pair and persists its session record
func (s *IdentityServiceImpl) mintSession(ctx context.Context, account *domain.Account, device domain.DeviceInfo) (*domain.AuthResult, error) {
	sessionID := ulid.Make().String()

	accessToken, accessExp, err := s.tokenSvc.GenerateAccessToken(account.ID, sessionID)
	if err != nil {
		return nil, domain.Internal("session.access_token", err)
	}
	refreshToken, refreshExp, err := s.tokenSvc.GenerateRefreshToken(account.ID, sessionID)
	if err != nil {
		return nil, domain.Internal("session.refresh_token", err)
	}

	session := &domain.Session{
		ID:               sessionID,
		AccountID:        account.ID,
		AccessTokenHash:  hashCredential(accessToken),
		RefreshTokenHash: hashCredential(refreshToken),
		Device:           device,
		IsActive:         true,
		ExpiresAt:        refreshExp,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, domain.Internal("session.create", err)
	}

	s.logger.InfoContext(ctx, "session created", "account_id", account.ID, "session_id", sessionID)
	return &domain.AuthResult{
		Account:          account,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		SessionID:        sessionID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
