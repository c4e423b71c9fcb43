package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/internal/logging"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/notify"
)

// config is read from TOKENLIFE_* environment variables.
type config struct {
	Addr string `env:"TOKENLIFE_ADDR" envDefault:":8080"`

	JWTSecret     string        `env:"TOKENLIFE_JWT_SECRET"`
	JWTSecretFile string        `env:"TOKENLIFE_JWT_SECRET_FILE"`
	JWTIssuer     string        `env:"TOKENLIFE_JWT_ISSUER" envDefault:"tokenlife"`
	AccessTTL     time.Duration `env:"TOKENLIFE_ACCESS_TTL" envDefault:"24h"`
	RefreshTTL    time.Duration `env:"TOKENLIFE_REFRESH_TTL" envDefault:"168h"`
	StrictRotate  bool          `env:"TOKENLIFE_STRICT_REFRESH_ROTATION"`
	KeyPrefix     string        `env:"TOKENLIFE_REDIS_KEY_PREFIX"`

	RedisAddr     string `env:"TOKENLIFE_REDIS_ADDR"`
	RedisPassword string `env:"TOKENLIFE_REDIS_PASSWORD"`
	RedisDB       int    `env:"TOKENLIFE_REDIS_DB"`

	DBDriver string `env:"TOKENLIFE_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"TOKENLIFE_DB_DSN" envDefault:"tokenlife.db"`

	// SweepInterval paces removal of expired reset requests and, without
	// Redis, expired revocation entries.
	SweepInterval time.Duration `env:"TOKENLIFE_SWEEP_INTERVAL" envDefault:"5m"`

	MFAMaxAttempts int `env:"TOKENLIFE_MFA_MAX_ATTEMPTS" envDefault:"5"`

	ResetURL          string        `env:"TOKENLIFE_RESET_URL" envDefault:"http://localhost:3000/reset-password"`
	ResetTTL          time.Duration `env:"TOKENLIFE_RESET_TTL" envDefault:"24h"`
	MinPasswordLength int           `env:"TOKENLIFE_MIN_PASSWORD_LENGTH" envDefault:"1"`
	SurfaceNotifyErrs bool          `env:"TOKENLIFE_SURFACE_NOTIFICATION_ERRORS"`

	SMTPHost     string `env:"TOKENLIFE_SMTP_HOST"`
	SMTPPort     int    `env:"TOKENLIFE_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"TOKENLIFE_SMTP_USERNAME"`
	SMTPPassword string `env:"TOKENLIFE_SMTP_PASSWORD"`
	SMTPFrom     string `env:"TOKENLIFE_SMTP_FROM" envDefault:"noreply@localhost"`

	AuditEnabled bool `env:"TOKENLIFE_AUDIT_ENABLED" envDefault:"true"`

	LogLevel      string `env:"TOKENLIFE_LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"TOKENLIFE_LOG_FORMAT" envDefault:"json"`
	LogFile       string `env:"TOKENLIFE_LOG_FILE"`
	LogMaxSizeMB  int    `env:"TOKENLIFE_LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"TOKENLIFE_LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"TOKENLIFE_LOG_MAX_AGE_DAYS" envDefault:"28"`

	// SeedUsername creates this user at startup when it does not exist yet.
	SeedUsername string `env:"TOKENLIFE_SEED_USERNAME"`
	SeedEmail    string `env:"TOKENLIFE_SEED_EMAIL"`
	SeedPassword string `env:"TOKENLIFE_SEED_PASSWORD"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c config) engineConfig() (tokenlife.Config, error) {
	key, err := jwt.LoadKey(c.JWTSecret, c.JWTSecretFile)
	if err != nil {
		return tokenlife.Config{}, err
	}

	out := tokenlife.DefaultConfig()
	out.JWT.SigningKey = key
	out.JWT.Issuer = c.JWTIssuer
	out.JWT.AccessTTL = c.AccessTTL
	out.JWT.RefreshTTL = c.RefreshTTL
	out.Security.StrictRefreshRotation = c.StrictRotate
	out.MFA.MaxAttempts = c.MFAMaxAttempts
	out.Revocation.KeyPrefix = c.KeyPrefix
	out.PasswordReset.ResetURL = c.ResetURL
	out.PasswordReset.TokenTTL = c.ResetTTL
	out.PasswordReset.MinPasswordLength = c.MinPasswordLength
	out.PasswordReset.SurfaceNotificationErrors = c.SurfaceNotifyErrs
	out.Audit.Enabled = c.AuditEnabled
	return out, out.Validate()
}

func (c config) loggingOptions() logging.Options {
	return logging.Options{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
	}
}

func (c config) smtpConfig() notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}
}
