package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "redis", cfg.Auth.OTPStore)
	assert.False(t, cfg.Auth.ForgotPasswordRevealUnknown)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.False(t, cfg.Notify.SMTPEnabled())
	assert.Equal(t, "lms", cfg.Mongo.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":                     "s3cret",
		"ENV":                            "Production",
		"SESSION_TTL":                    "1h",
		"OTP_STORE":                      " Memory ",
		"FORGOT_PASSWORD_REVEAL_UNKNOWN": "true",
		"SMTP_HOST":                      "smtp.example.com",
		"REDIS_PASSWORD":                 "pw",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "memory", cfg.Auth.OTPStore)
	assert.True(t, cfg.Auth.ForgotPasswordRevealUnknown)
	assert.True(t, cfg.Notify.SMTPEnabled())
	assert.Equal(t, "pw", cfg.Redis.Password)
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"bad otp store":    {"JWT_SECRET": "x", "OTP_STORE": "disk"},
		"zero session ttl": {"JWT_SECRET": "x", "SESSION_TTL": "0s"},
		"bad duration":     {"JWT_SECRET": "x", "RESET_TOKEN_TTL": "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
