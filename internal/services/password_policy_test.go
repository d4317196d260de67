package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/you/identitysvc/domain"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := NewPasswordPolicy(8, []string{"Password1!", " Welcome1! "})

	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{name: "strong", password: "Str0ng!Pass"},
		{name: "unicode letters count", password: "Ünïcode9#x"},
		{name: "contains a common word", password: "MyPassword1!x"},
		{name: "too short", password: "S0!a", wantMsg: "password is too short"},
		{name: "exactly 72 bytes", password: "Str0ng!Pass" + strings.Repeat("x", 61)},
		{name: "over 72 bytes", password: "Str0ng!Pass" + strings.Repeat("x", 70), wantMsg: "password must be at most 72 bytes"},
		{name: "multi-byte runes over 72 bytes", password: "Str0ng!" + strings.Repeat("é", 33), wantMsg: "password must be at most 72 bytes"},
		{name: "no upper", password: "str0ng!pass", wantMsg: "password must contain upper-case, lower-case, digit and symbol characters"},
		{name: "no digit", password: "Strong!Pass", wantMsg: "password must contain upper-case, lower-case, digit and symbol characters"},
		{name: "no symbol", password: "Str0ngPass", wantMsg: "password must contain upper-case, lower-case, digit and symbol characters"},
		{name: "deny list exact", password: "Password1!", wantMsg: "password is too common"},
		{name: "deny list case-insensitive", password: "pASSWORD1!", wantMsg: "password is too common"},
		{name: "deny list entry trimmed", password: "Welcome1!", wantMsg: "password is too common"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.password)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrWeakPassword)
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestPasswordPolicy_DefaultMinLength(t *testing.T) {
	policy := NewPasswordPolicy(0, nil)
	assert.Error(t, policy.Validate("S0!a"))
	assert.NoError(t, policy.Validate("Abcdef1!"))
}
