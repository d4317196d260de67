package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/you/identitysvc/domain"
	"github.com/you/identitysvc/internal/config"
	httpx "github.com/you/identitysvc/internal/http"
	"github.com/you/identitysvc/internal/http/handlers"
	"github.com/you/identitysvc/internal/http/middleware"
	"github.com/you/identitysvc/internal/infrastructure/auth"
	"github.com/you/identitysvc/internal/infrastructure/database"
	"github.com/you/identitysvc/internal/infrastructure/metrics"
	"github.com/you/identitysvc/internal/infrastructure/notifications"
	"github.com/you/identitysvc/internal/infrastructure/ratelimit"
	"github.com/you/identitysvc/internal/infrastructure/repositories"
	"github.com/you/identitysvc/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	DB       *gorm.DB
	Redis    *database.RedisClient
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	Accounts domain.AccountRepository
	Sessions domain.SessionRepository
	Codes    domain.VerificationCodeRepository

	// Notification pipeline
	Queue  *notifications.Queue
	Worker *notifications.Worker

	// Services
	PasswordSvc domain.PasswordService
	TokenSvc    domain.TokenService
	OTPSvc      domain.OTPService
	IdentitySvc domain.IdentityService
}

// NewContainer connects to Postgres and Redis, migrates the schema and wires
// every component
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN, !cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rdb.Ping(ctx); err != nil {
		_ = database.Close(db)
		_ = rdb.Close()
		return nil, err
	}

	return NewContainerWith(cfg, db, rdb, DefaultSenders(cfg, logger), logger), nil
}

// NewContainerWith wires the components on top of already opened stores
func NewContainerWith(
	cfg *config.Config,
	db *gorm.DB,
	rdb *database.RedisClient,
	senders map[domain.Channel]notifications.Sender,
	logger *slog.Logger,
) *Container {
	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: rdb}
	c.Registry, c.Metrics = metrics.NewRegistry()

	c.initRepositories()
	c.initNotifications(senders)
	c.initServices()
	return c
}

// DefaultSenders builds the transports named in the configuration
func DefaultSenders(cfg *config.Config, logger *slog.Logger) map[domain.Channel]notifications.Sender {
	return map[domain.Channel]notifications.Sender{
		domain.ChannelSMS:   notifications.NewTwilioSender(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, logger),
		domain.ChannelEmail: notifications.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, logger),
	}
}

func (c *Container) initRepositories() {
	c.Accounts = repositories.NewAccountRepository(c.DB)
	c.Sessions = repositories.NewSessionRepository(c.DB)
	c.Codes = repositories.NewVerificationCodeRepository(c.Redis.Client, repositories.DefaultCodeRetention)
}

func (c *Container) initNotifications(senders map[domain.Channel]notifications.Sender) {
	c.Queue = notifications.NewQueue(c.Redis.Client, c.Config.NotificationQueueKey)
	c.Worker = notifications.NewWorker(c.Queue, senders, notifications.WorkerConfig{
		MaxRetries:  c.Config.NotificationMaxRetries,
		RetryBase:   c.Config.NotificationRetryBase,
		PollTimeout: c.Config.NotificationPollTimeout,
	}, c.Logger, c.Metrics)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.PasswordSvc = auth.NewPasswordService(cfg.BcryptCost)
	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)

	c.OTPSvc = services.NewOTPService(c.Codes, c.Accounts, c.Queue, services.OTPConfig{
		Length:       cfg.OTP_Length,
		TTL:          cfg.OTP_TTL,
		MaxAttempts:  cfg.OTP_MaxAttempts,
		ResendWindow: cfg.OTP_ResendWindow,
		TestBypass:   cfg.OTP_TestBypass,
		Production:   cfg.IsProduction(),
	}, c.Logger, c.Metrics)

	c.IdentitySvc = services.NewIdentityService(
		c.Accounts,
		c.Sessions,
		c.OTPSvc,
		c.PasswordSvc,
		services.NewPasswordPolicy(cfg.PasswordMinLength, cfg.PasswordDenyList),
		c.TokenSvc,
		c.Queue,
		ratelimit.NewRedisLimiter(c.Redis.Client, "ratelimit:"),
		services.IdentityConfig{
			LockoutThreshold: cfg.LockoutThreshold,
			LockoutDuration:  cfg.LockoutDuration,
			SignupRateLimit:  cfg.SignupRateLimit,
			SignupWindow:     cfg.SignupWindow,
			ResetTokenTTL:    cfg.ResetTokenTTL,
			ResetLinkBaseURL: cfg.ResetLinkBaseURL,
			FaceMaxAttempts:  cfg.FaceMaxAttempts,
			FaceWindow:       cfg.FaceWindow,
		},
		c.Logger,
		c.Metrics,
	)
}

// Router builds the HTTP surface
func (c *Container) Router() *gin.Engine {
	production := c.Config.IsProduction()
	return httpx.BuildRouter(
		handlers.NewIdentityHandlers(c.IdentitySvc, production, c.Logger),
		middleware.NewAuthMW(c.IdentitySvc, production),
		promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{}),
		c.Logger,
	)
}

// Close closes all connections
func (c *Container) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = fmt.Errorf("redis close: %w", err)
		}
	}
	if c.DB != nil {
		if err := database.Close(c.DB); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("database close: %w", err)
		}
	}
	return firstErr
}
