package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/you/identitysvc/internal/config"
)

func TestLoadTestConfig(t *testing.T) {
	cfg := LoadTestConfig(t)

	assert.Equal(t, config.EnvTest, cfg.Environment)
	assert.Equal(t, GetTestJWTSecret(), cfg.JWTSecret)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, time.Second, cfg.NotificationPollTimeout)
}

func TestGetTestJWTSecret_Override(t *testing.T) {
	t.Setenv("IDENTITY_TEST_JWT_SECRET", "from-env")
	assert.Equal(t, "from-env", GetTestJWTSecret())
}
