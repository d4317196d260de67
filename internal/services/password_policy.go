package services

import (
	"strings"
	"unicode"

	"github.com/you/identitysvc/domain"
)

// MaxPasswordBytes is the longest secret bcrypt accepts
const MaxPasswordBytes = 72

// PasswordPolicyImpl implements domain.PasswordPolicy
type PasswordPolicyImpl struct {
	minLength int
	denied    map[string]struct{}
}

// NewPasswordPolicy creates a policy requiring minLength characters, all four
// character classes, and no exact (case-insensitive) match against denyList
func NewPasswordPolicy(minLength int, denyList []string) domain.PasswordPolicy {
	if minLength < 1 {
		minLength = 8
	}
	denied := make(map[string]struct{}, len(denyList))
	for _, d := range denyList {
		denied[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
	}
	return &PasswordPolicyImpl{minLength: minLength, denied: denied}
}

// Validate implements domain.PasswordPolicy
func (p *PasswordPolicyImpl) Validate(password string) error {
	if len([]rune(password)) < p.minLength {
		return domain.ErrWeakPassword.WithMessage("password is too short")
	}
	if len(password) > MaxPasswordBytes {
		return domain.ErrWeakPassword.WithMessage("password must be at most 72 bytes")
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return domain.ErrWeakPassword.WithMessage("password must contain upper-case, lower-case, digit and symbol characters")
	}

	// exact match only; a strong secret that merely contains a common word is fine
	if _, ok := p.denied[strings.ToLower(password)]; ok {
		return domain.ErrWeakPassword.WithMessage("password is too common")
	}
	return nil
}
