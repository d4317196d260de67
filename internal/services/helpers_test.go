package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/infrastructure/auth"
	"github.com/you/identitysvc/internal/infrastructure/metrics"
	"github.com/you/identitysvc/internal/infrastructure/notifications"
	"github.com/you/identitysvc/internal/infrastructure/ratelimit"
	"github.com/you/identitysvc/internal/infrastructure/repositories"
	"github.com/you/identitysvc/internal/logging"
	"github.com/you/identitysvc/internal/mocks"
)

const (
	testEmail  = "a@x.com"
	testSecret = "Str0ng!Pass"
)

// testClock is a manually advanced time source shared by every component
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// harness wires the identity service to real stores backed by SQLite and miniredis
type harness struct {
	svc      domain.IdentityService
	otp      domain.OTPService
	accounts domain.AccountRepository
	sessions domain.SessionRepository
	codes    domain.VerificationCodeRepository
	sink     *mocks.MockNotificationSink
	clock    *testClock
	redis    *miniredis.Miniredis
	metrics  *metrics.Metrics
}

func testIdentityConfig(clock *testClock) IdentityConfig {
	return IdentityConfig{
		LockoutThreshold: 5,
		LockoutDuration:  15 * time.Minute,
		SignupRateLimit:  5,
		SignupWindow:     time.Hour,
		ResetTokenTTL:    30 * time.Minute,
		ResetLinkBaseURL: "https://app.example.com/reset",
		FaceMaxAttempts:  3,
		FaceWindow:       15 * time.Minute,
		Now:              clock.Now,
	}
}

func testOTPConfig(clock *testClock) OTPConfig {
	return OTPConfig{
		Length:       6,
		TTL:          10 * time.Minute,
		MaxAttempts:  4,
		ResendWindow: time.Minute,
		Now:          clock.Now,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&repositories.DBAccount{}, &repositories.DBSession{}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := newTestClock()
	m := metrics.New(prometheus.NewRegistry())
	log := logging.Discard()

	h := &harness{
		accounts: repositories.NewAccountRepository(db),
		sessions: repositories.NewSessionRepository(db),
		codes:    repositories.NewVerificationCodeRepository(client, 0),
		sink:     mocks.NewMockNotificationSink(),
		clock:    clock,
		redis:    mr,
		metrics:  m,
	}
	h.otp = NewOTPService(h.codes, h.accounts, h.sink, testOTPConfig(clock), log, m)
	h.svc = NewIdentityService(
		h.accounts,
		h.sessions,
		h.otp,
		auth.NewPasswordService(bcrypt.MinCost),
		NewPasswordPolicy(8, []string{"Password1!"}),
		newTokenService(h),
		h.sink,
		ratelimit.NewRedisLimiter(client, "ratelimit:").WithClock(clock.Now),
		testIdentityConfig(clock),
		log,
		m,
	)
	return h
}

// newTokenService signs with the harness key and clock
func newTokenService(h *harness) *auth.JWTServiceImpl {
	return auth.NewJWTService("test-secret-key-of-sufficient-length", "identitysvc-test", 15*time.Minute, 24*time.Hour).
		WithClock(h.clock.Now)
}

// lastCode returns the plaintext code of the most recent verification notification
func (h *harness) lastCode(t *testing.T) string {
	t.Helper()
	n := h.sink.Last(domain.TemplateVerificationCode)
	require.NotNil(t, n, "no verification code was sent")
	return n.Data[notifications.DataCode]
}

// signup registers testEmail and returns the account with its OTP reference
func (h *harness) signup(t *testing.T) (*domain.Account, string) {
	t.Helper()
	res, err := h.svc.Signup(context.Background(), domain.SignupRequest{
		Identifier:  testEmail,
		Secret:      testSecret,
		DisplayName: "Ada",
	})
	require.NoError(t, err)
	return res.Account, res.OTPRef
}

// activeAccount registers and verifies testEmail
func (h *harness) activeAccount(t *testing.T) *domain.Account {
	t.Helper()
	_, ref := h.signup(t)
	res, err := h.svc.VerifyOTP(context.Background(), domain.VerifyOTPRequest{OTPRef: ref, Code: h.lastCode(t)})
	require.NoError(t, err)
	return res.Account
}

// signIn authenticates testEmail with secret
func (h *harness) signIn(t *testing.T, secret string) (*domain.AuthResult, error) {
	t.Helper()
	return h.svc.SignIn(context.Background(), domain.SignInRequest{
		Identifier: testEmail,
		Secret:     secret,
		Device:     domain.DeviceInfo{DeviceID: "device-1", Platform: "ios"},
	})
}

// wrongCode returns a code of the right length that differs from code
func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}
