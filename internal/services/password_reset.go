package services

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/infrastructure/notifications"
	"github.com/you/identitysvc/internal/logging"
)

// RequestPasswordReset implements domain.IdentityService. The outcome is the
// same whether or not the identifier is registered.
func (s *IdentityServiceImpl) RequestPasswordReset(ctx context.Context, identifier string) error {
	normalized, channel, err := NormalizeIdentifier(identifier)
	if err != nil {
		return err
	}

	// generated on both paths; only the known path stores it and queues a link
	token, err := generateResetToken()
	if err != nil {
		return domain.Internal("reset.token", err)
	}
	tokenHash := hashCredential(token)

	account, err := s.accounts.FindByIdentifier(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.logger.DebugContext(ctx, "password reset requested for unknown identifier")
			return nil
		}
		return domain.Internal("reset.lookup", err)
	}

	expiresAt := s.config.Now().Add(s.config.ResetTokenTTL)
	if err := s.accounts.Update(ctx, account.ID, domain.AccountUpdate{
		ResetTokenHash:   &tokenHash,
		ResetTokenExpiry: &expiresAt,
	}); err != nil {
		return domain.Internal("reset.store", err)
	}

	s.notify(ctx, domain.NewNotification(domain.TemplatePasswordReset, channel, account.Destination(channel)).
		WithAccount(account.ID).
		WithData(notifications.DataLink, s.resetLink(token)).
		WithData(notifications.DataTTLMinutes, strconv.Itoa(int(s.config.ResetTokenTTL.Minutes()))))

	s.logger.InfoContext(ctx, "password reset issued", "account_id", account.ID)
	return nil
}

// CompletePasswordReset implements domain.IdentityService. A token works
// once; success clears any lockout and ends every session of the account.
func (s *IdentityServiceImpl) CompletePasswordReset(ctx context.Context, token, newSecret string) error {
	if token == "" {
		return domain.ErrResetTokenInvalid
	}
	if err := s.policy.Validate(newSecret); err != nil {
		return err
	}

	tokenHash := hashCredential(token)
	account, err := s.accounts.FindByResetTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return domain.ErrResetTokenInvalid
		}
		return domain.Internal("reset.lookup", err)
	}

	if account.ResetTokenExpiresAt == nil || !s.config.Now().Before(*account.ResetTokenExpiresAt) {
		if err := s.accounts.Update(ctx, account.ID, domain.AccountUpdate{ClearResetToken: true}); err != nil {
			logging.LogWarn(ctx, s.logger, "expired reset token cleanup failed", err, "account_id", account.ID)
		}
		return domain.ErrResetTokenInvalid
	}

	hashed, err := s.passwordSvc.Hash(newSecret)
	if err != nil {
		return domain.Internal("reset.hash", err)
	}
	if err := s.accounts.CompletePasswordReset(ctx, account.ID, tokenHash, hashed); err != nil {
		return domain.Internal("reset.complete", err)
	}

	n, err := s.sessions.DeactivateByAccount(ctx, account.ID)
	if err != nil {
		return domain.Internal("reset.revoke_sessions", err)
	}
	s.logger.InfoContext(ctx, "password reset completed", "account_id", account.ID, "sessions_revoked", n)
	return nil
}

func (s *IdentityServiceImpl) resetLink(token string) string {
	base, err := url.Parse(s.config.ResetLinkBaseURL)
	if err != nil || s.config.ResetLinkBaseURL == "" {
		return "?token=" + url.QueryEscape(token)
	}
	q := base.Query()
	q.Set("token", token)
	base.RawQuery = q.Encode()
	return base.String()
}
