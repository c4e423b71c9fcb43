package tokenlife

import (
	"errors"

	"github.com/MrEthical07/tokenlife/jwt"
)

// Codec failures. All four collapse to false in ValidateAccess and
// ValidateRefreshToken but stay distinguishable through errors.Is.
var (
	ErrTokenMalformed            = jwt.ErrTokenMalformed
	ErrTokenExpired              = jwt.ErrTokenExpired
	ErrTokenInvalidSignature     = jwt.ErrTokenInvalidSignature
	ErrTokenUnsupportedAlgorithm = jwt.ErrTokenUnsupportedAlgorithm
)

var (
	// ErrUnauthorized is returned by Authenticate for invalid, expired, or revoked access tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned when the credential verifier rejects a sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by directories and by RequestPasswordReset for unknown users.
	ErrUserNotFound = errors.New("user not found")
	// ErrRefreshTokenInvalid covers every refresh rejection: bad token, wrong kind, revoked, or reused.
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
	// ErrMFACodeInvalid is returned when the submitted code is absent or does not match.
	ErrMFACodeInvalid = errors.New("mfa code invalid")
	// ErrMFACodeExpired is returned when the mfa_pending token has expired.
	ErrMFACodeExpired = errors.New("mfa code expired")
	// ErrMFARequired is returned by Authenticate for mfa_pending tokens.
	ErrMFARequired = errors.New("mfa required")
	// ErrResetTokenInvalid covers absent, used, and expired reset tokens alike.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
	// ErrResetRequestNotFound is returned by ResetRequestStore.FindByToken.
	ErrResetRequestNotFound = errors.New("password reset request not found")
	// ErrPasswordPolicy is returned when a new password is rejected before hashing.
	ErrPasswordPolicy = errors.New("password policy violation")

	// ErrRevocationUnavailable wraps revocation store failures.
	ErrRevocationUnavailable = errors.New("revocation store unavailable")
	// ErrResetStoreUnavailable wraps reset request and user persistence failures.
	ErrResetStoreUnavailable = errors.New("password reset store unavailable")
	// ErrNotificationFailed reports that a message could not be handed to the notifier.
	ErrNotificationFailed = errors.New("notification failed")
	// ErrTokenIssue reports a failure to sign a token.
	ErrTokenIssue = errors.New("token issuance failed")
	// ErrEngineNotReady is returned when a required collaborator was not configured.
	ErrEngineNotReady = errors.New("engine not initialized")
)
