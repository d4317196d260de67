package services

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/identitysvc/domain"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		want        string
		wantChannel domain.Channel
		wantErr     bool
	}{
		{name: "email lower-cased and trimmed", input: "  Ada@Example.COM ", want: "ada@example.com", wantChannel: domain.ChannelEmail},
		{name: "plain email", input: "a@x.com", want: "a@x.com", wantChannel: domain.ChannelEmail},
		{name: "e164 phone", input: "+15551234567", want: "+15551234567", wantChannel: domain.ChannelSMS},
		{name: "phone with spaces trimmed", input: " +447911123456 ", want: "+447911123456", wantChannel: domain.ChannelSMS},
		{name: "empty", input: "   ", wantErr: true},
		{name: "missing at", input: "ada.example.com", wantErr: true},
		{name: "missing domain dot", input: "ada@localhost", wantErr: true},
		{name: "display name form", input: "Ada <ada@example.com>", wantErr: true},
		{name: "phone with leading zero", input: "+0123456789", wantErr: true},
		{name: "phone too short", input: "+12345", wantErr: true},
		{name: "phone with letters", input: "+1555CALLNOW", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, channel, err := NormalizeIdentifier(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantChannel, channel)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	phone, err := NormalizePhone("")
	require.NoError(t, err)
	assert.Empty(t, phone)

	phone, err = NormalizePhone(" +15551234567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", phone)

	_, err = NormalizePhone("555-1234")
	assert.True(t, domain.IsKind(err, domain.KindInvalidInput))
}

func TestHashCode_BoundToRecord(t *testing.T) {
	assert.NotEqual(t, hashCode("ref-a", "123456"), hashCode("ref-b", "123456"))
	assert.Equal(t, hashCode("ref-a", "123456"), hashCode("ref-a", "123456"))
	assert.True(t, digestsEqual(hashCredential("token"), hashCredential("token")))
	assert.False(t, digestsEqual(hashCredential("token"), hashCredential("other")))
}

func TestGenerateSecureCode(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := generateSecureCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q", r)
		}
	}
}

func TestGenerateResetToken(t *testing.T) {
	a, err := generateResetToken()
	require.NoError(t, err)
	b, err := generateResetToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}
