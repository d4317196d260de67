package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/you/identitysvc/internal/infrastructure/notifications"
)

const testPassword = "Str0ng!Pass"

// Outbox is a notification sender that keeps every message per destination
type Outbox struct {
	mu   sync.Mutex
	sent map[string][]notifications.Message
}

func NewOutbox() *Outbox {
	return &Outbox{sent: make(map[string][]notifications.Message)}
}

// Send implements notifications.Sender
func (o *Outbox) Send(ctx context.Context, to string, msg notifications.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[to] = append(o.sent[to], msg)
	return nil
}

// Count returns how many messages went to destination
func (o *Outbox) Count(to string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent[to])
}

// Last returns the newest message sent to destination
func (o *Outbox) Last(t *testing.T, to string) notifications.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.sent[to]
	require.NotEmpty(t, msgs, "nothing sent to %s", to)
	return msgs[len(msgs)-1]
}

// generateTestEmail returns a unique, lower-case address
func generateTestEmail() string {
	return fmt.Sprintf("user-%s@example.com", strings.ToLower(ulid.Make().String()))
}

var phoneSeq atomic.Int64

// generateTestPhone returns a unique E.164 number
func generateTestPhone() string {
	return fmt.Sprintf("+1555%07d", phoneSeq.Add(1))
}

// Account is a verified account created through the API
type Account struct {
	Email    string
	Password string
	ID       float64
}

// CreateVerifiedAccount signs up and verifies an email account over HTTP
func CreateVerifiedAccount(t *testing.T, s *TestServer) Account {
	t.Helper()
	email := generateTestEmail()

	res := s.Post("/auth/signup", map[string]string{"identifier": email, "password": testPassword, "display_name": "E2E"}, "")
	require.Equal(t, http.StatusCreated, res.Status, res.Body)
	ref := res.Data()["otp_ref"].(string)

	res = s.Post("/auth/otp/verify", map[string]string{"otp_ref": ref, "code": s.LastCode(email)}, "")
	require.Equal(t, http.StatusOK, res.Status, res.Body)

	id := res.Data()["account"].(map[string]interface{})["id"].(float64)
	return Account{Email: email, Password: testPassword, ID: id}
}

// Login signs in and returns the access and refresh tokens
func Login(t *testing.T, s *TestServer, identifier, password string) (string, string) {
	t.Helper()
	res := s.Post("/auth/login", map[string]string{"identifier": identifier, "password": password, "device_id": "e2e"}, "")
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	return res.Data()["access_token"].(string), res.Data()["refresh_token"].(string)
}
