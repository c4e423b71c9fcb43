package flows

import (
	"context"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/revocation"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureToken
	RefreshFailureKindMismatch
	RefreshFailureBlacklisted
	RefreshFailureReuse
	RefreshFailureStore
	RefreshFailureSubject
	RefreshFailureIssue
	RefreshFailureRevokeOld
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	Subject      string
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Tokens TokenDeps

	// StrictRotation consumes the subject's refresh pointer with an atomic
	// compare-and-delete before minting, so one refresh token rotates once.
	StrictRotation bool
	Consumer       revocation.Consumer

	// CheckSubject, when set, confirms the subject still resolves to a user.
	CheckSubject func(ctx context.Context, subject string) error
}

// RunRefresh verifies refreshToken, mints a new pair, and only then
// blacklists the presented token for its remaining lifetime.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	tokens := deps.Tokens

	verified, err := tokens.Codec.Verify(refreshToken)
	if err != nil {
		tokens.logger().Debug("refresh token rejected", zap.Error(err))
		return RefreshResult{Failure: RefreshFailureToken, Err: err}
	}
	subject := verified.Subject
	if verified.Kind != jwt.KindRefresh {
		return RefreshResult{Failure: RefreshFailureKindMismatch, Subject: subject}
	}

	blacklisted, err := tokens.Store.Exists(ctx, tokens.Keys.Blacklist(refreshToken))
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject}
	}
	if blacklisted {
		return RefreshResult{Failure: RefreshFailureBlacklisted, Subject: subject}
	}

	// Under strict rotation the pointer is consumed before minting; later
	// failures put the presented token back so the client can retry with it.
	pointerChanged := false
	fail := func(res RefreshResult) RefreshResult {
		if pointerChanged {
			restorePointer(ctx, refreshToken, verified, tokens)
		}
		return res
	}

	if deps.StrictRotation {
		consumed, err := deps.Consumer.CompareAndDelete(ctx, tokens.Keys.RefreshPointer(subject), refreshToken)
		if err != nil {
			return RefreshResult{Failure: RefreshFailureStore, Err: err, Subject: subject}
		}
		if !consumed {
			return RefreshResult{Failure: RefreshFailureReuse, Subject: subject}
		}
		pointerChanged = true
	}

	if deps.CheckSubject != nil {
		if err := deps.CheckSubject(ctx, subject); err != nil {
			return fail(RefreshResult{Failure: RefreshFailureSubject, Err: err, Subject: subject})
		}
	}

	pair := IssuePair(ctx, subject, tokens)
	switch pair.Failure {
	case PairFailureSign:
		return fail(RefreshResult{Failure: RefreshFailureIssue, Err: pair.Err, Subject: subject})
	case PairFailureStore:
		return fail(RefreshResult{Failure: RefreshFailureStore, Err: pair.Err, Subject: subject})
	}

	if err := revoke(ctx, refreshToken, verified, tokens); err != nil {
		tokens.logger().Warn("old refresh token not revoked", zap.String("subject", subject), zap.Error(err))
		return fail(RefreshResult{Failure: RefreshFailureRevokeOld, Err: err, Subject: subject})
	}

	return RefreshResult{
		Subject:      subject,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

// restorePointer points the subject's refresh pointer back at token for the
// rest of its lifetime.
func restorePointer(ctx context.Context, token string, verified *jwt.Verified, tokens TokenDeps) {
	remaining := verified.ExpiresAt.Sub(tokens.Codec.Now())
	if remaining <= 0 {
		return
	}
	if err := tokens.Store.Set(ctx, tokens.Keys.RefreshPointer(verified.Subject), token, remaining); err != nil {
		tokens.logger().Warn("refresh pointer not restored", zap.String("subject", verified.Subject), zap.Error(err))
	}
}
