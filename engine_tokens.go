package tokenlife

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife/internal/flows"
	"github.com/MrEthical07/tokenlife/jwt"
)

// SignIn verifies credentials and issues an access/refresh pair. The subject's
// refresh pointer is overwritten with the new refresh token.
func (e *Engine) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	res := flows.RunSignIn(ctx, username, password, e.flows.SignIn)

	var err error
	switch res.Failure {
	case flows.SignInFailureNone:
		e.metricInc(MetricSignInSuccess)
		e.emitAudit(ctx, auditEventSignInSuccess, true, res.Principal.Subject, nil, nil)
		return &SignInResult{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			Principal:    Principal{Subject: res.Principal.Subject, Authorities: res.Principal.Authorities},
		}, nil
	case flows.SignInFailureCredentials:
		err = credentialError(res.Err)
	case flows.SignInFailureSign:
		err = unavailable(ErrTokenIssue, res.Err)
	case flows.SignInFailureStore:
		err = unavailable(ErrRevocationUnavailable, res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.metricInc(MetricSignInFailure)
	e.emitAudit(ctx, auditEventSignInFailure, false, res.Principal.Subject, err, func() map[string]string {
		return map[string]string{"identifier": username}
	})
	return nil, err
}

// Refresh exchanges a refresh token for a new pair. The new pair is minted
// before the presented token is blacklisted for its remaining lifetime.
// Every token-level rejection is ErrRefreshTokenInvalid.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	defer e.observeSince(MetricRefreshLatency, time.Now())

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)

	var err error
	switch res.Failure {
	case flows.RefreshFailureNone:
		e.metricInc(MetricRefreshSuccess)
		e.emitAudit(ctx, auditEventRefreshSuccess, true, res.Subject, nil, nil)
		return &TokenPair{AccessToken: res.AccessToken, RefreshToken: res.RefreshToken}, nil
	case flows.RefreshFailureBlacklisted, flows.RefreshFailureReuse:
		e.metricInc(MetricRefreshReuseRejected)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshReuseRejected, false, res.Subject, ErrRefreshTokenInvalid, nil)
		return nil, ErrRefreshTokenInvalid
	case flows.RefreshFailureToken:
		err = fmt.Errorf("%w: %w", ErrRefreshTokenInvalid, res.Err)
	case flows.RefreshFailureKindMismatch:
		err = ErrRefreshTokenInvalid
	case flows.RefreshFailureSubject:
		if errors.Is(res.Err, ErrUserNotFound) {
			err = ErrRefreshTokenInvalid
		} else {
			err = fmt.Errorf("refresh: load user: %w", res.Err)
		}
	case flows.RefreshFailureIssue:
		err = unavailable(ErrTokenIssue, res.Err)
	case flows.RefreshFailureStore, flows.RefreshFailureRevokeOld:
		err = unavailable(ErrRevocationUnavailable, res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, res.Subject, err, nil)
	return nil, err
}

// Blacklist revokes token until its natural expiry. Verification failures are
// returned as the codec errors (ErrTokenExpired and friends). Repeated calls
// rewrite the same entry.
func (e *Engine) Blacklist(ctx context.Context, token string) error {
	res := flows.RunBlacklist(ctx, token, e.flows.Tokens)
	switch res.Failure {
	case flows.BlacklistFailureNone:
		e.metricInc(MetricTokenBlacklisted)
		e.emitAudit(ctx, auditEventTokenBlacklisted, true, res.Subject, nil, nil)
		return nil
	case flows.BlacklistFailureToken:
		return res.Err
	default:
		return unavailable(ErrRevocationUnavailable, res.Err)
	}
}

// IsBlacklisted reports whether token has a live blacklist entry.
func (e *Engine) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	ok, err := e.store.Exists(ctx, e.keys.Blacklist(token))
	if err != nil {
		return false, unavailable(ErrRevocationUnavailable, err)
	}
	return ok, nil
}

// ValidateAccess is the boolean request gate: false when token is blacklisted,
// fails verification, or is not an access token. Store failures count as
// false. Both standard and mfa_pending access tokens pass; use Authenticate to
// tell them apart.
func (e *Engine) ValidateAccess(ctx context.Context, token string) bool {
	defer e.observeSince(MetricValidateLatency, time.Now())
	return e.validate(ctx, token, jwt.KindAccess).Failure == flows.ValidateFailureNone
}

// ValidateRefreshToken is true for a verifiable refresh token that is not
// blacklisted.
func (e *Engine) ValidateRefreshToken(ctx context.Context, token string) bool {
	return e.validate(ctx, token, jwt.KindRefresh).Failure == flows.ValidateFailureNone
}

// Authenticate validates an access token for API use. mfa_pending tokens fail
// with ErrMFARequired; every other rejection is ErrUnauthorized, except store
// failures which wrap ErrRevocationUnavailable.
func (e *Engine) Authenticate(ctx context.Context, token string) (*AccessResult, error) {
	defer e.observeSince(MetricValidateLatency, time.Now())

	res := e.validate(ctx, token, jwt.KindAccess)
	switch res.Failure {
	case flows.ValidateFailureNone:
	case flows.ValidateFailureStore:
		return nil, unavailable(ErrRevocationUnavailable, res.Err)
	default:
		return nil, ErrUnauthorized
	}

	if res.Token.AuthType == jwt.AuthMFAPending {
		return nil, ErrMFARequired
	}
	return &AccessResult{
		Subject:   res.Token.Subject,
		TokenID:   res.Token.ID,
		AuthType:  string(res.Token.AuthType),
		ExpiresAt: res.Token.ExpiresAt,
	}, nil
}

func (e *Engine) validate(ctx context.Context, token string, want jwt.Kind) flows.ValidateResult {
	res := flows.RunValidate(ctx, token, want, e.flows.Tokens)
	if res.Failure == flows.ValidateFailureNone {
		return res
	}

	e.metricInc(MetricValidateRejected)
	if res.Failure == flows.ValidateFailureStore {
		e.logger.Warn("revocation store unavailable during validation", zap.Error(res.Err))
	}
	return res
}

// SignOut blacklists accessToken and, if non-empty, refreshToken, and drops
// the subject's refresh pointer when it still names refreshToken.
func (e *Engine) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	res := flows.RunSignOut(ctx, accessToken, refreshToken, e.flows.Tokens)

	var err error
	switch res.Failure {
	case flows.SignOutFailureNone:
		e.metricInc(MetricSignOut)
		e.emitAudit(ctx, auditEventSignOut, true, res.Subject, nil, func() map[string]string {
			return map[string]string{"refresh_revoked": fmt.Sprint(refreshToken != "")}
		})
		return nil
	case flows.SignOutFailureAccessToken:
		err = ErrUnauthorized
		if res.Err != nil {
			err = fmt.Errorf("%w: %w", ErrUnauthorized, res.Err)
		}
	case flows.SignOutFailureRefreshToken:
		err = ErrRefreshTokenInvalid
		if res.Err != nil {
			err = fmt.Errorf("%w: %w", ErrRefreshTokenInvalid, res.Err)
		}
	default:
		err = unavailable(ErrRevocationUnavailable, res.Err)
	}

	e.emitAudit(ctx, auditEventSignOut, false, res.Subject, err, nil)
	return err
}

// credentialError hides why a credential check failed unless the cause is
// infrastructure.
func credentialError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUserNotFound):
		return ErrInvalidCredentials
	case errors.Is(err, ErrEngineNotReady):
		return ErrEngineNotReady
	default:
		return err
	}
}
