package services

import (
	"context"
	"errors"

	"github.com/you/identitysvc/domain"
)

// VerifyToken implements domain.IdentityService. Failures are distinguishable:
// malformed, expired, not found, inactive account, revoked session.
func (s *IdentityServiceImpl) VerifyToken(ctx context.Context, accessToken string, requireSession bool) (*domain.Principal, error) {
	if accessToken == "" {
		return nil, domain.ErrTokenMalformed
	}
	claims, err := s.tokenSvc.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		return nil, domain.Internal("verify_token.account", err)
	}
	if !account.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	principal := &domain.Principal{Account: account, SessionID: claims.SessionID}
	if !requireSession {
		return principal, nil
	}

	session, err := s.sessions.FindByAccessCredential(ctx, hashCredential(accessToken))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionRevoked
		}
		return nil, domain.Internal("verify_token.session", err)
	}
	if !session.IsValidAt(s.config.Now()) || session.AccountID != account.ID || session.ID != claims.SessionID {
		return nil, domain.ErrSessionRevoked
	}
	principal.Session = session
	return principal, nil
}

// Logout implements domain.IdentityService. Every session bound to the access
// credential is deactivated; an expired but authentic credential may still log out.
func (s *IdentityServiceImpl) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return domain.ErrTokenMalformed
	}
	if _, err := s.tokenSvc.ValidateAccessToken(accessToken); err != nil && !errors.Is(err, domain.ErrTokenExpired) {
		return err
	}

	inactive := false
	n, err := s.sessions.UpdateManyByCredential(ctx, hashCredential(accessToken), domain.SessionUpdate{IsActive: &inactive})
	if err != nil {
		return domain.Internal("logout", err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	s.logger.InfoContext(ctx, "session logged out", "sessions", n)
	return nil
}

// RefreshSession implements domain.IdentityService. The refresh credential is
// kept; the session's access credential is replaced.
func (s *IdentityServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrTokenMalformed
	}
	claims, err := s.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.FindByRefreshCredential(ctx, hashCredential(refreshToken))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionRevoked
		}
		return nil, domain.Internal("refresh.session", err)
	}
	if !session.IsValidAt(s.config.Now()) || session.ID != claims.SessionID || session.AccountID != claims.AccountID {
		return nil, domain.ErrSessionRevoked
	}

	account, err := s.accounts.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, domain.Internal("refresh.account", err)
	}
	if !account.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	accessToken, accessExp, err := s.tokenSvc.GenerateAccessToken(account.ID, session.ID)
	if err != nil {
		return nil, domain.Internal("refresh.access_token", err)
	}
	accessHash := hashCredential(accessToken)
	if err := s.sessions.Update(ctx, session.ID, domain.SessionUpdate{AccessTokenHash: &accessHash}); err != nil {
		return nil, domain.Internal("refresh.update", err)
	}

	return &domain.AuthResult{
		Account:          account,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		SessionID:        session.ID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}
