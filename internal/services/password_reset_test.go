package services

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/infrastructure/notifications"
)

const newSecret = "N3w!Secret"

// resetToken extracts the token from the most recent reset link
func (h *harness) resetToken(t *testing.T) string {
	t.Helper()
	n := h.sink.Last(domain.TemplatePasswordReset)
	require.NotNil(t, n, "no reset link was sent")
	link, err := url.Parse(n.Data[notifications.DataLink])
	require.NoError(t, err)
	return link.Query().Get("token")
}

func TestIdentityService_PasswordResetRoundTrip(t *testing.T) {
	h := newHarness(t)
	account := h.activeAccount(t)
	before, err := h.signIn(t, testSecret)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, _ = h.signIn(t, "Wr0ng!Pass")
	}

	require.NoError(t, h.svc.RequestPasswordReset(context.Background(), " A@x.com"))

	n := h.sink.Last(domain.TemplatePasswordReset)
	require.NotNil(t, n)
	assert.Equal(t, testEmail, n.Destination)
	assert.Equal(t, account.ID, n.AccountID)
	assert.Contains(t, n.Data[notifications.DataLink], "https://app.example.com/reset?token=")
	token := h.resetToken(t)
	require.NotEmpty(t, token)

	stored, err := h.accounts.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, hashCredential(token), stored.ResetTokenHash, "only the digest is stored")

	require.NoError(t, h.svc.CompletePasswordReset(context.Background(), token, newSecret))

	_, err = h.signIn(t, testSecret)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = h.signIn(t, newSecret)
	require.NoError(t, err, "reset clears the lockout")

	_, err = h.svc.VerifyToken(context.Background(), before.AccessToken, true)
	assert.ErrorIs(t, err, domain.ErrSessionRevoked, "reset ends existing sessions")

	err = h.svc.CompletePasswordReset(context.Background(), token, "An0ther!Secret")
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid, "token works once")
}

func TestIdentityService_PasswordResetUnknownIdentifier(t *testing.T) {
	h := newHarness(t)
	h.activeAccount(t)
	before := len(h.sink.Delivered())

	assert.NoError(t, h.svc.RequestPasswordReset(context.Background(), "nobody@x.com"))
	assert.Len(t, h.sink.Delivered(), before)

	assert.ErrorIs(t, h.svc.RequestPasswordReset(context.Background(), "not an identifier"), domain.ErrInvalidIdentifier)
}

func TestIdentityService_PasswordResetExpired(t *testing.T) {
	h := newHarness(t)
	account := h.activeAccount(t)
	require.NoError(t, h.svc.RequestPasswordReset(context.Background(), testEmail))
	token := h.resetToken(t)

	h.clock.Advance(31 * time.Minute)

	err := h.svc.CompletePasswordReset(context.Background(), token, newSecret)
	assert.ErrorIs(t, err, domain.ErrResetTokenInvalid)

	stored, err := h.accounts.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.ResetTokenHash, "expired token is cleared")
	assert.Nil(t, stored.ResetTokenExpiresAt)

	_, err = h.signIn(t, testSecret)
	assert.NoError(t, err)
}

func TestIdentityService_PasswordResetSupersededToken(t *testing.T) {
	h := newHarness(t)
	h.activeAccount(t)

	require.NoError(t, h.svc.RequestPasswordReset(context.Background(), testEmail))
	first := h.resetToken(t)
	require.NoError(t, h.svc.RequestPasswordReset(context.Background(), testEmail))
	second := h.resetToken(t)
	require.NotEqual(t, first, second)

	assert.ErrorIs(t, h.svc.CompletePasswordReset(context.Background(), first, newSecret), domain.ErrResetTokenInvalid)
	assert.NoError(t, h.svc.CompletePasswordReset(context.Background(), second, newSecret))
}

func TestIdentityService_CompletePasswordResetValidation(t *testing.T) {
	h := newHarness(t)
	h.activeAccount(t)
	require.NoError(t, h.svc.RequestPasswordReset(context.Background(), testEmail))
	token := h.resetToken(t)

	assert.ErrorIs(t, h.svc.CompletePasswordReset(context.Background(), "", newSecret), domain.ErrResetTokenInvalid)
	assert.ErrorIs(t, h.svc.CompletePasswordReset(context.Background(), "forged", newSecret), domain.ErrResetTokenInvalid)
	assert.ErrorIs(t, h.svc.CompletePasswordReset(context.Background(), token, "weak"), domain.ErrWeakPassword)

	assert.NoError(t, h.svc.CompletePasswordReset(context.Background(), token, newSecret), "a rejected attempt does not burn the token")
}

func TestIdentityService_PasswordResetSessionRevocationFailure(t *testing.T) {
	deps := newMockDeps()
	expires := time.Now().Add(time.Hour)
	deps.accounts.FindByResetTokenHashFunc = func(ctx context.Context, tokenHash string) (*domain.Account, error) {
		return &domain.Account{ID: 9, Status: domain.StatusActive, ResetTokenHash: tokenHash, ResetTokenExpiresAt: &expires}, nil
	}
	deps.sessions.DeactivateByAccountFunc = func(ctx context.Context, accountID uint) (int64, error) {
		return 0, errors.New("database is locked")
	}

	err := deps.service().CompletePasswordReset(context.Background(), "token", newSecret)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestResetLink(t *testing.T) {
	svc := &IdentityServiceImpl{config: IdentityConfig{ResetLinkBaseURL: "https://app.example.com/reset?lang=en"}}
	assert.Equal(t, "https://app.example.com/reset?lang=en&token=a-b_c", svc.resetLink("a-b_c"))

	svc.config.ResetLinkBaseURL = ""
	assert.Equal(t, "?token=a-b_c", svc.resetLink("a-b_c"))
}
