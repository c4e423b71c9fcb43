package tokenlife

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DirectoryVerifier checks passwords against hashes loaded from a
// [UserDirectory]. It is the default [CredentialVerifier].
type DirectoryVerifier struct {
	users    UserDirectory
	verifier PasswordVerifier
	logger   *zap.Logger
}

// NewDirectoryVerifier returns a verifier backed by users.
func NewDirectoryVerifier(users UserDirectory, verifier PasswordVerifier) *DirectoryVerifier {
	return &DirectoryVerifier{users: users, verifier: verifier, logger: zap.NewNop()}
}

// WithLogger sets the logger used for best-effort rehash failures.
func (d *DirectoryVerifier) WithLogger(logger *zap.Logger) *DirectoryVerifier {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// VerifyCredentials returns ErrInvalidCredentials for unknown users and wrong
// passwords alike. When the stored digest is outdated and the verifier can
// hash, the password is rehashed and saved.
func (d *DirectoryVerifier) VerifyCredentials(ctx context.Context, username, password string) (Principal, error) {
	if username == "" || password == "" {
		return Principal{}, ErrInvalidCredentials
	}

	user, err := d.users.LoadUser(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, fmt.Errorf("load user: %w", err)
	}

	ok, err := d.verifier.Verify(password, user.PasswordHash)
	if err != nil {
		d.logger.Warn("stored password hash unreadable", zap.String("username", username), zap.Error(err))
		return Principal{}, ErrInvalidCredentials
	}
	if !ok {
		return Principal{}, ErrInvalidCredentials
	}

	d.maybeUpgrade(ctx, user, password)
	return Principal{Subject: user.Username, Authorities: user.Authorities}, nil
}

type upgradableHasher interface {
	PasswordHasher
	NeedsUpgrade(encodedHash string) (bool, error)
}

func (d *DirectoryVerifier) maybeUpgrade(ctx context.Context, user UserRecord, password string) {
	h, ok := d.verifier.(upgradableHasher)
	if !ok {
		return
	}
	if stale, err := h.NeedsUpgrade(user.PasswordHash); err != nil || !stale {
		return
	}

	digest, err := h.Hash(password)
	if err == nil {
		user.PasswordHash = digest
		err = d.users.Save(ctx, user)
	}
	if err != nil {
		d.logger.Warn("password rehash failed", zap.String("username", user.Username), zap.Error(err))
	}
}
