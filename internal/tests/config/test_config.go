package config

import (
	"os"
	"testing"

	"github.com/you/identitysvc/internal/config"
)

// LoadTestConfig builds a validated configuration for end-to-end tests.
// It starts from the production defaults and relaxes what would make tests slow.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	f := config.Defaults()
	f.App.Environment = config.EnvTest
	f.App.GinMode = "test"
	f.JWT.Secret = GetTestJWTSecret()
	f.JWT.Issuer = "identitysvc-e2e"
	f.Password.BcryptCost = 4
	f.Signup.RateLimit = 3
	f.Signup.Window = "1h"
	f.Reset.LinkBaseURL = "https://app.example.com/reset-password"
	f.Notifications.QueueKey = "e2e:notifications"
	f.Notifications.RetryBase = "10ms"
	f.Notifications.PollTimeout = "1s"

	cfg, err := config.FromFile(&f)
	if err != nil {
		t.Fatalf("failed to build test configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test configuration is invalid: %v", err)
	}
	return cfg
}

// GetTestJWTSecret returns the signing secret used by end-to-end tests.
// IDENTITY_TEST_JWT_SECRET overrides it.
func GetTestJWTSecret() string {
	if s := os.Getenv("IDENTITY_TEST_JWT_SECRET"); s != "" {
		return s
	}
	return "test-jwt-secret-for-e2e-identity-flows"
}
