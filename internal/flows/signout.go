package flows

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife/internal"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/revocation"
)

// SignOutFailureKind classifies sign-out failures.
type SignOutFailureKind int

const (
	SignOutFailureNone SignOutFailureKind = iota
	SignOutFailureAccessToken
	SignOutFailureRefreshToken
	SignOutFailureStore
)

// SignOutResult reports the signed-out subject or failure metadata.
type SignOutResult struct {
	Failure SignOutFailureKind
	Err     error
	Subject string
}

// RunSignOut blacklists accessToken and, when given, refreshToken for their
// remaining lifetimes, then clears the subject's refresh pointer if it still
// names refreshToken. An already expired refresh token is skipped.
func RunSignOut(ctx context.Context, accessToken, refreshToken string, deps TokenDeps) SignOutResult {
	access, err := deps.Codec.Verify(accessToken)
	if err != nil {
		return SignOutResult{Failure: SignOutFailureAccessToken, Err: err}
	}
	if access.Kind != jwt.KindAccess {
		return SignOutResult{Failure: SignOutFailureAccessToken, Subject: access.Subject}
	}
	subject := access.Subject

	var refresh *jwt.Verified
	if refreshToken != "" {
		refresh, err = deps.Codec.Verify(refreshToken)
		if err != nil && !errors.Is(err, jwt.ErrTokenExpired) {
			return SignOutResult{Failure: SignOutFailureRefreshToken, Err: err, Subject: subject}
		}
		if refresh != nil && (refresh.Kind != jwt.KindRefresh || refresh.Subject != subject) {
			return SignOutResult{Failure: SignOutFailureRefreshToken, Subject: subject}
		}
	}

	if err := revoke(ctx, accessToken, access, deps); err != nil {
		return SignOutResult{Failure: SignOutFailureStore, Err: err, Subject: subject}
	}
	if refresh == nil {
		return SignOutResult{Subject: subject}
	}

	if err := revoke(ctx, refreshToken, refresh, deps); err != nil {
		return SignOutResult{Failure: SignOutFailureStore, Err: err, Subject: subject}
	}
	if _, err := consumeIfEqual(ctx, deps.Store, deps.Keys.RefreshPointer(subject), refreshToken); err != nil {
		deps.logger().Warn("refresh pointer not cleared", zap.String("subject", subject), zap.Error(err))
	}
	return SignOutResult{Subject: subject}
}

// consumeIfEqual deletes key when it holds expected and reports whether it
// did. Stores implementing revocation.Consumer do this atomically.
func consumeIfEqual(ctx context.Context, store revocation.Store, key, expected string) (bool, error) {
	if consumer, ok := store.(revocation.Consumer); ok {
		return consumer.CompareAndDelete(ctx, key, expected)
	}

	stored, found, err := store.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !found || !internal.EqualCodes(stored, expected) {
		return false, nil
	}
	if err := store.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}
