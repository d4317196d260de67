package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAccountLifecycle walks signup, verification, sign-in, refresh and logout
func TestAccountLifecycle(t *testing.T) {
	server := NewTestServer(t)
	email := generateTestEmail()

	res := server.Post("/auth/signup", map[string]string{"identifier": email, "password": testPassword, "display_name": "Ada"}, "")
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	otpRef := res.Data()["otp_ref"].(string)

	res = server.Post("/auth/login", map[string]string{"identifier": email, "password": testPassword}, "")
	assert.Equal(t, http.StatusForbidden, res.Status)
	assert.Equal(t, "account_not_verified", res.Reason())

	code := server.LastCode(email)
	res = server.Post("/auth/otp/verify", map[string]string{"otp_ref": otpRef, "code": code}, "")
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	assert.Equal(t, "SIGNUP", res.Data()["purpose"])

	server.DrainNotifications()
	assert.Equal(t, "Welcome", server.Outbox.Last(t, email).Subject)

	res = server.Post("/auth/otp/verify", map[string]string{"otp_ref": otpRef, "code": code}, "")
	assert.Equal(t, http.StatusGone, res.Status)
	assert.Equal(t, "otp_used", res.Reason())

	access, refresh := Login(t, server, email, testPassword)

	res = server.Do(http.MethodGet, "/auth/me", nil, access)
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	assert.Equal(t, "ACTIVE", res.Data()["status"])
	assert.Equal(t, true, res.Data()["email_verified"])
	assert.NotContains(t, res.Data(), "password_hash")

	res = server.Post("/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	refreshed := res.Data()["access_token"].(string)
	assert.Equal(t, refresh, res.Data()["refresh_token"], "refresh keeps the refresh credential")

	res = server.Do(http.MethodGet, "/auth/me", nil, access)
	assert.Equal(t, http.StatusUnauthorized, res.Status, "the replaced access credential no longer resolves")

	res = server.Post("/auth/logout", nil, refreshed)
	require.Equal(t, http.StatusOK, res.Status, res.Body)

	res = server.Do(http.MethodGet, "/auth/me", nil, refreshed)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, "session_revoked", res.Reason())

	res = server.Post("/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status, "a logged-out session cannot be refreshed")
}

func TestPasswordResetFlow(t *testing.T) {
	server := NewTestServer(t)
	account := CreateVerifiedAccount(t, server)
	access, _ := Login(t, server, account.Email, account.Password)

	res := server.Post("/auth/password/forgot", map[string]string{"identifier": generateTestEmail()}, "")
	assert.Equal(t, http.StatusAccepted, res.Status, "unknown identifiers look identical")

	res = server.Post("/auth/password/forgot", map[string]string{"identifier": account.Email}, "")
	assert.Equal(t, http.StatusAccepted, res.Status)
	token := server.LastResetToken(account.Email)

	res = server.Post("/auth/password/reset", map[string]string{"token": token, "password": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.Equal(t, "weak_password", res.Reason())

	res = server.Post("/auth/password/reset", map[string]string{"token": token, "password": "N3w!Secret"}, "")
	require.Equal(t, http.StatusOK, res.Status, res.Body)

	res = server.Post("/auth/password/reset", map[string]string{"token": token, "password": "N3w!Secret"}, "")
	assert.Equal(t, http.StatusGone, res.Status)
	assert.Equal(t, "reset_token_invalid", res.Reason())

	res = server.Do(http.MethodGet, "/auth/me", nil, access)
	assert.Equal(t, http.StatusUnauthorized, res.Status, "sessions are revoked by a reset")

	res = server.Post("/auth/login", map[string]string{"identifier": account.Email, "password": account.Password}, "")
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	Login(t, server, account.Email, "N3w!Secret")
}

func TestResendOTP(t *testing.T) {
	server := NewTestServer(t)
	email := generateTestEmail()

	res := server.Post("/auth/signup", map[string]string{"identifier": email, "password": testPassword}, "")
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	otpRef := res.Data()["otp_ref"].(string)

	res = server.Post("/auth/otp/resend", map[string]string{"otp_ref": otpRef}, "")
	assert.Equal(t, http.StatusTooManyRequests, res.Status)
	assert.Equal(t, "otp_resend_limited", res.Reason())

	res = server.Post("/auth/otp/resend", map[string]string{"otp_ref": "01HZZZZZZZZZZZZZZZZZZZZZZZ"}, "")
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Equal(t, "otp_not_found", res.Reason())
}
