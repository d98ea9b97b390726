package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Auth   AuthConfig
	Notify NotifyConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

type AuthConfig struct {
	SessionTTL    time.Duration `env:"SESSION_TTL,     default=720h"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL, default=10m"`
	OTPTTL        time.Duration `env:"OTP_TTL,         default=15m"`
	BcryptCost    int           `env:"BCRYPT_COST,     default=12"`
	// OTPStore selects where verification codes live: "redis" or "memory".
	OTPStore string `env:"OTP_STORE, default=redis"`

	ForgotPasswordRevealUnknown bool   `env:"FORGOT_PASSWORD_REVEAL_UNKNOWN, default=false"`
	VerifyEmailURL              string `env:"VERIFY_EMAIL_URL,   default=http://localhost:3000/verify-email/"`
	PasswordResetURL            string `env:"PASSWORD_RESET_URL, default=http://localhost:3000/reset-password/"`
}

type NotifyConfig struct {
	Workers      int    `env:"NOTIFY_WORKERS, default=4"`
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT,      default=587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=lms"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// SMTPEnabled reports whether outbound mail goes to a real relay.
func (c NotifyConfig) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Validate checks the settings envconfig cannot express as tags.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Auth.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.Auth.OTPTTL <= 0 {
		errs = append(errs, errors.New("OTP_TTL must be positive"))
	}
	switch c.Auth.OTPStore {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("OTP_STORE must be redis or memory, got %q", c.Auth.OTPStore))
	}
	return errors.Join(errs...)
}

// LoadFrom reads configuration through the given lookuper and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	cfg.Auth.OTPStore = strings.ToLower(strings.TrimSpace(cfg.Auth.OTPStore))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}
