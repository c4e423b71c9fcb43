package tokenlife

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife/internal/flows"
)

// BeginMFA verifies credentials, issues an mfa_pending token valid for
// MFA.CodeTTL, and stores a fresh one-time code for the subject, replacing any
// outstanding one. The code is delivered through the MFACodeSender.
func (e *Engine) BeginMFA(ctx context.Context, username, password string) (*MFAChallenge, error) {
	res := flows.RunBeginMFA(ctx, username, password, e.flows.MFA)
	subject := res.Principal.Subject

	var err error
	switch res.Failure {
	case flows.MFAFailureNone:
		e.metricInc(MetricMFAChallengeIssued)
		e.emitAudit(ctx, auditEventMFAChallengeIssued, true, subject, nil, nil)
		return &MFAChallenge{
			PendingToken: res.PendingToken,
			Subject:      subject,
			ExpiresAt:    res.ExpiresAt,
		}, nil
	case flows.MFAFailureCredentials:
		err = credentialError(res.Err)
	case flows.MFAFailureSign:
		err = unavailable(ErrTokenIssue, res.Err)
	case flows.MFAFailureStore:
		err = unavailable(ErrRevocationUnavailable, res.Err)
	case flows.MFAFailureDelivery:
		e.metricInc(MetricNotificationFailure)
		e.logger.Warn("mfa code delivery failed", zap.String("subject", subject), zap.Error(res.Err))
		e.emitAudit(ctx, auditEventNotificationFailure, false, subject, ErrNotificationFailed, func() map[string]string {
			return map[string]string{"channel": "mfa_code"}
		})
		err = unavailable(ErrNotificationFailed, res.Err)
	default:
		err = fmt.Errorf("mfa code generation: %w", res.Err)
	}

	e.metricInc(MetricMFAFailure)
	e.emitAudit(ctx, auditEventMFAFailure, false, subject, err, func() map[string]string {
		return map[string]string{"stage": "begin"}
	})
	return nil, err
}

// CompleteMFA consumes the subject's outstanding code and returns a standard
// access token. An absent or mismatched code is ErrMFACodeInvalid; after
// MFA.MaxAttempts mismatches the outstanding code is discarded. No refresh
// token is issued.
func (e *Engine) CompleteMFA(ctx context.Context, subject, code string) (string, error) {
	res := flows.RunCompleteMFA(ctx, subject, code, e.flows.MFA)
	return e.finishMFA(ctx, res)
}

// CompleteMFAWithToken completes MFA for the subject of an mfa_pending token
// and blacklists the pending token. An expired pending token is
// ErrMFACodeExpired; any other unusable token is ErrUnauthorized.
func (e *Engine) CompleteMFAWithToken(ctx context.Context, pendingToken, code string) (string, error) {
	res := flows.RunCompleteMFAWithToken(ctx, pendingToken, code, e.flows.MFA)
	return e.finishMFA(ctx, res)
}

func (e *Engine) finishMFA(ctx context.Context, res flows.CompleteMFAResult) (string, error) {
	var err error
	switch res.Failure {
	case flows.MFAFailureNone:
		e.metricInc(MetricMFASuccess)
		e.emitAudit(ctx, auditEventMFASuccess, true, res.Subject, nil, nil)
		return res.AccessToken, nil
	case flows.MFAFailureCodeInvalid:
		err = ErrMFACodeInvalid
		if res.AttemptsExhausted {
			e.logger.Warn("mfa code discarded after repeated mismatches", zap.String("subject", res.Subject))
		}
	case flows.MFAFailureCodeExpired:
		err = ErrMFACodeExpired
	case flows.MFAFailurePendingToken:
		err = ErrUnauthorized
	case flows.MFAFailureUser:
		if errors.Is(res.Err, ErrUserNotFound) {
			err = ErrUserNotFound
		} else {
			err = fmt.Errorf("mfa: load user: %w", res.Err)
		}
	case flows.MFAFailureSign:
		err = unavailable(ErrTokenIssue, res.Err)
	case flows.MFAFailureStore:
		err = unavailable(ErrRevocationUnavailable, res.Err)
	default:
		err = ErrEngineNotReady
	}

	e.metricInc(MetricMFAFailure)
	e.emitAudit(ctx, auditEventMFAFailure, false, res.Subject, err, func() map[string]string {
		return map[string]string{"stage": "complete"}
	})
	return "", err
}
