package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"strings"

	"github.com/you/identitysvc/domain"
)

var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// NormalizeIdentifier validates an email address or E.164 phone number and
// returns its canonical form together with the channel it naturally maps to
func NormalizeIdentifier(raw string) (string, domain.Channel, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", "", domain.ErrInvalidIdentifier
	}
	if strings.HasPrefix(id, "+") {
		if !e164Pattern.MatchString(id) {
			return "", "", domain.ErrInvalidIdentifier
		}
		return id, domain.ChannelSMS, nil
	}

	id = strings.ToLower(id)
	addr, err := mail.ParseAddress(id)
	if err != nil || addr.Address != id || !strings.Contains(id[strings.LastIndex(id, "@")+1:], ".") {
		return "", "", domain.ErrInvalidIdentifier
	}
	return id, domain.ChannelEmail, nil
}

// NormalizePhone validates an optional E.164 phone number
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return "", nil
	}
	if !e164Pattern.MatchString(phone) {
		return "", domain.ErrInvalidInput.WithMessage("phone must be an E.164 number such as +15551234567")
	}
	return phone, nil
}

// hashCredential digests a bearer credential or reset token for storage
func hashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// hashCode binds a one-time code to its record so equal codes never share a digest
func hashCode(recordID, code string) string {
	sum := sha256.Sum256([]byte(recordID + ":" + code))
	return hex.EncodeToString(sum[:])
}

// hashTemplate computes the stable content hash of a biometric template
func hashTemplate(template []byte) string {
	sum := sha256.Sum256(template)
	return hex.EncodeToString(sum[:])
}

func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// generateSecureCode generates a cryptographically secure numeric code
func generateSecureCode(length int) (string, error) {
	digits := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}

	return string(digits), nil
}

// generateResetToken returns a 256-bit URL-safe random token
func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
