package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks for the config file when none is given
const DefaultPath = "config/config.yml"

// Environment names
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

type AppConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
	GinMode     string `yaml:"gin_mode"`
	LogFormat   string `yaml:"log_format"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret     string `yaml:"secret"`
	Issuer     string `yaml:"issuer"`
	AccessTTL  string `yaml:"access_ttl"`
	RefreshTTL string `yaml:"refresh_ttl"`
}

type PasswordConfig struct {
	BcryptCost int      `yaml:"bcrypt_cost"`
	MinLength  int      `yaml:"min_length"`
	DenyList   []string `yaml:"deny_list"`
}

type OTPConfig struct {
	TTL          string `yaml:"ttl"`
	Length       int    `yaml:"length"`
	MaxAttempts  int    `yaml:"max_attempts"`
	ResendWindow string `yaml:"resend_window"`
	TestBypass   bool   `yaml:"test_bypass"`
}

type LockoutConfig struct {
	Threshold int    `yaml:"threshold"`
	Duration  string `yaml:"duration"`
}

type SignupConfig struct {
	RateLimit int    `yaml:"rate_limit"`
	Window    string `yaml:"window"`
}

type ResetConfig struct {
	TokenTTL    string `yaml:"token_ttl"`
	LinkBaseURL string `yaml:"link_base_url"`
}

type FaceConfig struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Window      string `yaml:"window"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type NotificationsConfig struct {
	QueueKey    string `yaml:"queue_key"`
	MaxRetries  int    `yaml:"max_retries"`
	RetryBase   string `yaml:"retry_base"`
	PollTimeout string `yaml:"poll_timeout"`
}

type ConfigFile struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	JWT           JWTConfig           `yaml:"jwt"`
	Password      PasswordConfig      `yaml:"password"`
	OTP           OTPConfig           `yaml:"otp"`
	Lockout       LockoutConfig       `yaml:"lockout"`
	Signup        SignupConfig        `yaml:"signup"`
	Reset         ResetConfig         `yaml:"reset"`
	Face          FaceConfig          `yaml:"face"`
	Twilio        TwilioConfig        `yaml:"twilio"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

type Config struct {
	Port        string
	Environment string
	GinMode     string
	LogFormat   string

	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	BcryptCost        int
	PasswordMinLength int
	PasswordDenyList  []string

	OTP_TTL          time.Duration
	OTP_Length       int
	OTP_MaxAttempts  int
	OTP_ResendWindow time.Duration
	OTP_TestBypass   bool

	LockoutThreshold int
	LockoutDuration  time.Duration

	SignupRateLimit int
	SignupWindow    time.Duration

	ResetTokenTTL    time.Duration
	ResetLinkBaseURL string

	FaceMaxAttempts int
	FaceWindow      time.Duration

	TwilioSID   string
	TwilioToken string
	TwilioFrom  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	NotificationQueueKey    string
	NotificationMaxRetries  int
	NotificationRetryBase   time.Duration
	NotificationPollTimeout time.Duration
}

// IsProduction reports whether the service runs with production guarantees
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Defaults returns the file-level defaults applied before the YAML is decoded
func Defaults() ConfigFile {
	return ConfigFile{
		App:      AppConfig{Port: 8080, Environment: EnvProduction, GinMode: "release", LogFormat: "json"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		JWT:      JWTConfig{Issuer: "identitysvc", AccessTTL: "45m", RefreshTTL: "504h"},
		Password: PasswordConfig{BcryptCost: 12, MinLength: 8, DenyList: DefaultDenyList},
		OTP:      OTPConfig{TTL: "5m", Length: 6, MaxAttempts: 4, ResendWindow: "60s"},
		Lockout:  LockoutConfig{Threshold: 5, Duration: "15m"},
		Signup:   SignupConfig{RateLimit: 1, Window: "5m"},
		Reset:    ResetConfig{TokenTTL: "15m", LinkBaseURL: "http://localhost:8080/reset-password"},
		Face:     FaceConfig{MaxAttempts: 5, Window: "15m"},
		SMTP:     SMTPConfig{Port: 587},
		Notifications: NotificationsConfig{
			QueueKey:    "notifications:queue",
			MaxRetries:  3,
			RetryBase:   "500ms",
			PollTimeout: "5s",
		},
	}
}

// DefaultDenyList holds common secrets rejected by exact, case-insensitive match
var DefaultDenyList = []string{
	"password", "password1", "password123", "passw0rd", "p@ssw0rd", "p@ssword1",
	"123456", "12345678", "123456789", "qwerty", "qwerty123", "letmein", "welcome1",
	"admin123", "iloveyou", "abc123", "changeme", "Password1!", "Welcome1!", "Qwerty123!",
}

// Load reads the YAML file at path (DefaultPath when empty), applies .env and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if path == "" {
		path = env("IDENTITY_CONFIG", DefaultPath)
	}

	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	applyEnv(configFile)

	cfg, err := FromFile(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile converts the decoded YAML into a Config, parsing durations
func FromFile(f *ConfigFile) (*Config, error) {
	var errs []error
	dur := func(name, value string) time.Duration {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
		}
		return d
	}

	cfg := &Config{
		Port:        strconv.Itoa(f.App.Port),
		Environment: strings.ToLower(strings.TrimSpace(f.App.Environment)),
		GinMode:     f.App.GinMode,
		LogFormat:   f.App.LogFormat,

		DSN:           f.Database.DSN,
		RedisAddr:     f.Redis.Addr,
		RedisPassword: f.Redis.Password,
		RedisDB:       f.Redis.DB,

		JWTSecret:  f.JWT.Secret,
		JWTIssuer:  f.JWT.Issuer,
		AccessTTL:  dur("JWT access TTL", f.JWT.AccessTTL),
		RefreshTTL: dur("JWT refresh TTL", f.JWT.RefreshTTL),

		BcryptCost:        f.Password.BcryptCost,
		PasswordMinLength: f.Password.MinLength,
		PasswordDenyList:  f.Password.DenyList,

		OTP_TTL:          dur("OTP TTL", f.OTP.TTL),
		OTP_Length:       f.OTP.Length,
		OTP_MaxAttempts:  f.OTP.MaxAttempts,
		OTP_ResendWindow: dur("OTP resend window", f.OTP.ResendWindow),
		OTP_TestBypass:   f.OTP.TestBypass,

		LockoutThreshold: f.Lockout.Threshold,
		LockoutDuration:  dur("lockout duration", f.Lockout.Duration),

		SignupRateLimit: f.Signup.RateLimit,
		SignupWindow:    dur("signup window", f.Signup.Window),

		ResetTokenTTL:    dur("reset token TTL", f.Reset.TokenTTL),
		ResetLinkBaseURL: f.Reset.LinkBaseURL,

		FaceMaxAttempts: f.Face.MaxAttempts,
		FaceWindow:      dur("face window", f.Face.Window),

		TwilioSID:   f.Twilio.AccountSID,
		TwilioToken: f.Twilio.AuthToken,
		TwilioFrom:  f.Twilio.FromNumber,

		SMTPHost:     f.SMTP.Host,
		SMTPPort:     f.SMTP.Port,
		SMTPUsername: f.SMTP.Username,
		SMTPPassword: f.SMTP.Password,
		SMTPFrom:     f.SMTP.From,

		NotificationQueueKey:    f.Notifications.QueueKey,
		NotificationMaxRetries:  f.Notifications.MaxRetries,
		NotificationRetryBase:   dur("notification retry base", f.Notifications.RetryBase),
		NotificationPollTimeout: dur("notification poll timeout", f.Notifications.PollTimeout),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate rejects configurations the identity service cannot run safely with
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("bcrypt cost %d out of range [4,31]", c.BcryptCost))
	}
	positive := map[string]time.Duration{
		"jwt access_ttl":    c.AccessTTL,
		"jwt refresh_ttl":   c.RefreshTTL,
		"otp ttl":           c.OTP_TTL,
		"otp resend_window": c.OTP_ResendWindow,
		"lockout duration":  c.LockoutDuration,
		"signup window":     c.SignupWindow,
		"reset token_ttl":   c.ResetTokenTTL,
		"face window":       c.FaceWindow,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.OTP_Length < 4 || c.OTP_Length > 10 {
		errs = append(errs, fmt.Errorf("otp length %d out of range [4,10]", c.OTP_Length))
	}
	if c.OTP_MaxAttempts < 1 {
		errs = append(errs, errors.New("otp max_attempts must be at least 1"))
	}
	if c.LockoutThreshold < 1 {
		errs = append(errs, errors.New("lockout threshold must be at least 1"))
	}
	if c.SignupRateLimit < 1 {
		errs = append(errs, errors.New("signup rate_limit must be at least 1"))
	}
	if c.FaceMaxAttempts < 1 {
		errs = append(errs, errors.New("face max_attempts must be at least 1"))
	}
	if c.OTP_TestBypass && c.IsProduction() {
		errs = append(errs, errors.New("otp test_bypass cannot be enabled in production"))
	}

	return errors.Join(errs...)
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	config := Defaults()
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}

// applyEnv lets deployments keep secrets and addresses out of the YAML file
func applyEnv(f *ConfigFile) {
	f.App.Environment = env("IDENTITY_ENV", f.App.Environment)
	f.Database.DSN = env("IDENTITY_DATABASE_DSN", f.Database.DSN)
	f.Redis.Addr = env("IDENTITY_REDIS_ADDR", f.Redis.Addr)
	f.Redis.Password = env("IDENTITY_REDIS_PASSWORD", f.Redis.Password)
	f.JWT.Secret = env("IDENTITY_JWT_SECRET", f.JWT.Secret)
	f.Twilio.AccountSID = env("IDENTITY_TWILIO_ACCOUNT_SID", f.Twilio.AccountSID)
	f.Twilio.AuthToken = env("IDENTITY_TWILIO_AUTH_TOKEN", f.Twilio.AuthToken)
	f.Twilio.FromNumber = env("IDENTITY_TWILIO_FROM", f.Twilio.FromNumber)
	f.SMTP.Password = env("IDENTITY_SMTP_PASSWORD", f.SMTP.Password)
	if port := env("IDENTITY_PORT", ""); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			f.App.Port = p
		}
	}
}
