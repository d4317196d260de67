package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistration(t *testing.T) {
	server := NewTestServer(t)

	tests := []struct {
		name           string
		body           func() map[string]string
		expectedStatus int
		expectedReason string
		deliveredTo    func(body map[string]string) string
	}{
		{
			name: "email signup sends the code by email",
			body: func() map[string]string {
				return map[string]string{"identifier": generateTestEmail(), "password": testPassword}
			},
			expectedStatus: http.StatusCreated,
			deliveredTo:    func(b map[string]string) string { return b["identifier"] },
		},
		{
			name: "phone signup sends the code by SMS",
			body: func() map[string]string {
				return map[string]string{"identifier": generateTestPhone(), "password": testPassword}
			},
			expectedStatus: http.StatusCreated,
			deliveredTo:    func(b map[string]string) string { return b["identifier"] },
		},
		{
			name: "email signup can verify over a secondary phone",
			body: func() map[string]string {
				return map[string]string{"identifier": generateTestEmail(), "password": testPassword, "phone": generateTestPhone(), "channel": "SMS"}
			},
			expectedStatus: http.StatusCreated,
			deliveredTo:    func(b map[string]string) string { return b["phone"] },
		},
		{
			name: "SMS channel without a phone",
			body: func() map[string]string {
				return map[string]string{"identifier": generateTestEmail(), "password": testPassword, "channel": "SMS"}
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "no_destination",
		},
		{
			name: "weak password",
			body: func() map[string]string {
				return map[string]string{"identifier": generateTestEmail(), "password": "password"}
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "weak_password",
		},
		{
			name: "identifier that is neither email nor phone",
			body: func() map[string]string {
				return map[string]string{"identifier": "not-an-identifier", "password": testPassword}
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "invalid_identifier",
		},
		{
			name: "missing password",
			body: func() map[string]string {
				return map[string]string{"identifier": generateTestEmail()}
			},
			expectedStatus: http.StatusBadRequest,
			expectedReason: "invalid_input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body()
			res := server.Post("/auth/signup", body, "")

			require.Equal(t, tt.expectedStatus, res.Status, res.Body)
			if tt.expectedReason != "" {
				assert.Equal(t, tt.expectedReason, res.Reason())
				return
			}

			account := res.Data()["account"].(map[string]interface{})
			assert.Equal(t, "PENDING_VERIFICATION", account["status"])
			assert.NotEmpty(t, res.Data()["otp_ref"])
			assert.Len(t, server.LastCode(tt.deliveredTo(body)), 6)
		})
	}
}

func TestRegistration_DuplicateIdentifier(t *testing.T) {
	server := NewTestServer(t)
	email := generateTestEmail()

	res := server.Post("/auth/signup", map[string]string{"identifier": email, "password": testPassword}, "")
	require.Equal(t, http.StatusCreated, res.Status, res.Body)

	res = server.Post("/auth/signup", map[string]string{"identifier": "  " + email + " ", "password": testPassword}, "")
	assert.Equal(t, http.StatusConflict, res.Status)
	assert.Equal(t, "identifier_taken", res.Reason())
}
