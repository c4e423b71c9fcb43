package revocation

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps backend failures so callers can fail closed.
	ErrUnavailable = errors.New("revocation store unavailable")
	// ErrInvalidTTL is returned by Set for a non-positive ttl.
	ErrInvalidTTL = errors.New("revocation ttl must be positive")
)

// Store is a TTL key-value capability safe for concurrent use.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Consumer is implemented by stores that can atomically delete a key only
// while it still holds an expected value.
type Consumer interface {
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

// Counter is implemented by stores that can increment a counter atomically.
// The ttl applies only when the increment creates the key.
type Counter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

const (
	blacklistNamespace   = "blacklist:"
	refreshNamespace     = "refresh_token:"
	mfaCodeNamespace     = "mfa_code:"
	mfaAttemptsNamespace = "mfa_attempts:"
)

// BlacklistValue is the value stored under blacklist keys.
const BlacklistValue = "1"

// KeySpace builds store keys under an optional deployment prefix.
type KeySpace struct {
	Prefix string
}

func (k KeySpace) build(namespace, id string) string {
	if k.Prefix == "" {
		return namespace + id
	}
	return k.Prefix + ":" + namespace + id
}

// Blacklist returns the key marking token as revoked.
func (k KeySpace) Blacklist(token string) string { return k.build(blacklistNamespace, token) }

// RefreshPointer returns the key holding subject's current refresh token.
func (k KeySpace) RefreshPointer(subject string) string { return k.build(refreshNamespace, subject) }

// MFACode returns the key holding subject's outstanding MFA code.
func (k KeySpace) MFACode(subject string) string { return k.build(mfaCodeNamespace, subject) }

// MFAAttempts returns the key counting mismatched codes for subject.
func (k KeySpace) MFAAttempts(subject string) string {
	return k.build(mfaAttemptsNamespace, subject)
}
