package tokenlife

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife/internal"
	"github.com/MrEthical07/tokenlife/internal/flows"
)

// RequestPasswordReset issues a fresh reset token for the user owning email,
// superseding any earlier request, and mails a reset link. Unknown addresses
// fail with ErrUserNotFound. A notification failure never removes the stored
// request; it is returned as ErrNotificationFailed only when
// PasswordReset.SurfaceNotificationErrors is set.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e.users == nil || e.resets == nil {
		return ErrEngineNotReady
	}

	res := flows.RunRequestPasswordReset(ctx, strings.TrimSpace(email), e.flows.PasswordReset)
	e.metricInc(MetricPasswordResetRequest)

	var err error
	switch res.Failure {
	case flows.ResetFailureNone:
		e.emitAudit(ctx, auditEventPasswordResetRequest, true, res.UserID, nil, nil)
		return nil
	case flows.ResetFailureNotify:
		e.metricInc(MetricNotificationFailure)
		e.logger.Warn("password reset notification failed", zap.String("user_id", res.UserID), zap.Error(res.Err))
		e.emitAudit(ctx, auditEventNotificationFailure, false, res.UserID, ErrNotificationFailed, func() map[string]string {
			return map[string]string{"channel": "password_reset"}
		})
		if !e.config.PasswordReset.SurfaceNotificationErrors {
			e.emitAudit(ctx, auditEventPasswordResetRequest, true, res.UserID, nil, nil)
			return nil
		}
		err = unavailable(ErrNotificationFailed, res.Err)
	case flows.ResetFailureUserNotFound:
		err = ErrUserNotFound
	case flows.ResetFailureTokenGeneration:
		err = fmt.Errorf("reset token generation: %w", res.Err)
	default:
		err = unavailable(ErrResetStoreUnavailable, res.Err)
	}

	e.emitAudit(ctx, auditEventPasswordResetRequest, false, res.UserID, err, nil)
	return err
}

// ValidateResetToken reports whether token names an unused, unexpired reset
// request. It never mutates state.
func (e *Engine) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	if e.resets == nil {
		return false, ErrEngineNotReady
	}
	res := flows.RunValidateResetToken(ctx, token, e.flows.PasswordReset)
	if res.Failure != flows.ResetFailureNone {
		return false, unavailable(ErrResetStoreUnavailable, res.Err)
	}
	return res.Valid, nil
}

// ResetPassword replaces the password of the request's user. It returns false
// without error when the token is absent, used, expired, or claimed by a
// concurrent call; true only after the request is marked used and the new
// hash is saved.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	if e.users == nil || e.resets == nil {
		return false, ErrEngineNotReady
	}
	if len(newPassword) < e.config.PasswordReset.MinPasswordLength {
		e.metricInc(MetricPasswordResetFailure)
		return false, ErrPasswordPolicy
	}

	res := flows.RunResetPassword(ctx, token, newPassword, e.flows.PasswordReset)

	var err error
	switch res.Failure {
	case flows.ResetFailureNone:
		e.metricInc(MetricPasswordResetSuccess)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, true, res.UserID, nil, nil)
		return true, nil
	case flows.ResetFailureInvalidToken:
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetInvalid, false, res.UserID, ErrResetTokenInvalid, nil)
		return false, nil
	case flows.ResetFailureHash:
		err = fmt.Errorf("%w: %v", ErrPasswordPolicy, res.Err)
	case flows.ResetFailureUserUpdate:
		if errors.Is(res.Err, ErrUserNotFound) {
			err = ErrUserNotFound
		} else {
			err = unavailable(ErrResetStoreUnavailable, res.Err)
		}
		e.logger.Error("reset request consumed but password not saved", zap.String("user_id", res.UserID), zap.Error(res.Err))
	default:
		err = unavailable(ErrResetStoreUnavailable, res.Err)
	}

	e.metricInc(MetricPasswordResetFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, res.UserID, err, nil)
	return false, err
}

// ConfirmPasswordReset is ResetPassword for callers that branch on errors: an
// unusable token is ErrResetTokenInvalid.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	ok, err := e.ResetPassword(ctx, token, newPassword)
	if err != nil {
		return err
	}
	if !ok {
		return ErrResetTokenInvalid
	}
	return nil
}

func (e *Engine) passwordResetDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		TokenTTL: e.config.PasswordReset.TokenTTL,
		Now:      e.codec.Now,
		NewToken: internal.NewResetToken,
		NewID:    internal.NewRecordID,
		FindUserByEmail: func(ctx context.Context, email string) (flows.ResetUser, error) {
			user, err := e.users.FindByEmail(ctx, email)
			if err != nil {
				return flows.ResetUser{}, err
			}
			return flows.ResetUser{ID: user.ID, Email: user.Email}, nil
		},
		IsUserNotFound: func(err error) bool {
			return errors.Is(err, ErrUserNotFound)
		},
		ReplaceRequest: func(ctx context.Context, r flows.ResetRecord) error {
			return e.resets.ReplaceForUser(ctx, PasswordResetRequest(r))
		},
		FindRequest: func(ctx context.Context, token string) (flows.ResetRecord, bool, error) {
			req, err := e.resets.FindByToken(ctx, token)
			if errors.Is(err, ErrResetRequestNotFound) {
				return flows.ResetRecord{}, false, nil
			}
			if err != nil {
				return flows.ResetRecord{}, false, err
			}
			return flows.ResetRecord(req), true, nil
		},
		MarkUsed: func(ctx context.Context, id string, now time.Time) (bool, error) {
			return e.resets.MarkUsed(ctx, id, now)
		},
		HashPassword: e.hasher.Hash,
		UpdatePasswordHash: func(ctx context.Context, userID, hash string) error {
			user, err := e.users.FindByID(ctx, userID)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
			return e.users.Save(ctx, user)
		},
		Notify: e.sendResetLink,
	}
}

func (e *Engine) sendResetLink(ctx context.Context, user flows.ResetUser, token string) error {
	if e.notifier == nil {
		e.logger.Warn("no notifier configured; reset link not sent", zap.String("user_id", user.ID))
		return nil
	}
	cfg := e.config.PasswordReset
	link := resetLink(cfg.ResetURL, token)
	body := "You are receiving this message because a password reset was requested for your account.\n" +
		"Open the link below to choose a new password:\n" + link + "\n\n" +
		"If you did not request a reset, ignore this message.\n" +
		"The link expires in " + cfg.TokenTTL.String() + "."
	return e.notifier.SendText(ctx, user.Email, cfg.EmailSubject, body)
}

func resetLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
