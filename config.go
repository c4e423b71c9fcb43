package tokenlife

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/tokenlife/jwt"
)

// Config is the complete engine configuration. It is copied at Build time and
// treated as immutable afterwards.
type Config struct {
	JWT           JWTConfig
	MFA           MFAConfig
	PasswordReset PasswordResetConfig
	Password      PasswordConfig
	Revocation    RevocationConfig
	Security      SecurityConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the process-wide signing key and token lifetimes.
type JWTConfig struct {
	// SigningKey is the HS256 key; at least 32 bytes. See jwt.LoadKey.
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig controls the two-phase MFA handshake.
type MFAConfig struct {
	// CodeTTL bounds both the mfa_pending token and the stored code.
	CodeTTL    time.Duration
	CodeDigits int
	// MaxAttempts mismatched codes discard the outstanding code; the user must
	// begin again.
	MaxAttempts int
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls reset token lifetime and the reset message.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	// ResetURL is the front-end page; the token is appended as ?token=.
	ResetURL     string
	EmailSubject string
	// SurfaceNotificationErrors makes RequestPasswordReset return
	// ErrNotificationFailed when the notifier fails. The request row is kept
	// either way.
	SurfaceNotificationErrors bool
	MinPasswordLength         int
}

// PasswordConfig tunes the default argon2id hasher used when the builder is
// given no PasswordHasher.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

/*
====================================
REVOCATION / SECURITY CONFIG
====================================
*/

// RevocationConfig controls the revocation key layout.
type RevocationConfig struct {
	// KeyPrefix namespaces every key, e.g. "tl" gives "tl:blacklist:<token>".
	KeyPrefix string
}

// SecurityConfig holds hardening switches.
type SecurityConfig struct {
	// StrictRefreshRotation consumes the refresh pointer with an atomic
	// compare-and-delete, so each refresh token rotates at most once and a
	// token superseded by a newer sign-in can no longer refresh.
	StrictRefreshRotation bool
	// CheckUserOnRefresh rejects refresh for subjects the directory no
	// longer knows.
	CheckUserOnRefresh bool
}

// AuditConfig controls asynchronous audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.SigningKey is left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			Issuer:     "tokenlife",
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		MFA: MFAConfig{
			CodeTTL:     5 * time.Minute,
			CodeDigits:  6,
			MaxAttempts: 5,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:          24 * time.Hour,
			ResetURL:          "http://localhost:3000/reset-password",
			EmailSubject:      "Password Reset Request",
			MinPasswordLength: 1,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = append([]byte(nil), cfg.JWT.SigningKey...)
	return out
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.SigningKey) < jwt.MinKeySize {
		return fmt.Errorf("JWT SigningKey must be >= %d bytes", jwt.MinKeySize)
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}

	// MFA
	if c.MFA.CodeTTL <= 0 {
		return errors.New("MFA CodeTTL must be > 0")
	}
	if c.MFA.CodeDigits < 6 || c.MFA.CodeDigits > 10 {
		return errors.New("MFA CodeDigits must be between 6 and 10")
	}
	if c.MFA.MaxAttempts <= 0 {
		return errors.New("MFA MaxAttempts must be > 0")
	}

	// Password reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.MinPasswordLength < 1 {
		return errors.New("PasswordReset MinPasswordLength must be >= 1")
	}
	if c.PasswordReset.ResetURL != "" {
		u, err := url.Parse(c.PasswordReset.ResetURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("PasswordReset ResetURL must be an absolute URL")
		}
	}

	// Password hashing
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Revocation
	if strings.ContainsAny(c.Revocation.KeyPrefix, " \t\r\n") {
		return errors.New("Revocation KeyPrefix must not contain whitespace")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
