package tokenlife

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/tokenlife/internal/audit"
	"github.com/MrEthical07/tokenlife/internal/flows"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/revocation"
)

// Engine is the credential and token lifecycle service. It is immutable after
// [Builder.Build] and safe for concurrent use.
type Engine struct {
	config Config

	codec  *jwt.Codec
	store  revocation.Store
	keys   revocation.KeySpace
	logger *zap.Logger

	verifier  CredentialVerifier
	users     UserDirectory
	hasher    PasswordHasher
	notifier  Notifier
	mfaSender MFACodeSender
	resets    ResetRequestStore

	audit   *internalaudit.Dispatcher
	metrics *Metrics

	flows flows.Deps
}

// Close drains pending audit events. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full or the sink panicked.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

// SubjectOf returns the subject of a verifiable token without consulting the
// blacklist.
func (e *Engine) SubjectOf(token string) (string, error) {
	return e.codec.SubjectOf(token)
}

// HashPassword digests plain with the engine's hasher, for provisioning
// users outside the reset flow.
func (e *Engine) HashPassword(plain string) (string, error) {
	if e == nil || e.hasher == nil {
		return "", ErrEngineNotReady
	}
	return e.hasher.Hash(plain)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// observeSince records the elapsed time since start; use with defer.
func (e *Engine) observeSince(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

func (e *Engine) flowDeps() flows.Deps {
	tokens := flows.TokenDeps{
		Codec:      e.codec,
		Store:      e.store,
		Keys:       e.keys,
		AccessTTL:  e.config.JWT.AccessTTL,
		RefreshTTL: e.config.JWT.RefreshTTL,
		Logger:     e.logger,
	}

	deps := flows.Deps{
		Tokens: tokens,
		SignIn: flows.SignInDeps{
			Tokens:            tokens,
			VerifyCredentials: e.verifyCredentials,
		},
		Refresh: flows.RefreshDeps{
			Tokens:         tokens,
			StrictRotation: e.config.Security.StrictRefreshRotation,
		},
		MFA: flows.MFADeps{
			Tokens:            tokens,
			CodeTTL:           e.config.MFA.CodeTTL,
			CodeDigits:        e.config.MFA.CodeDigits,
			MaxAttempts:       e.config.MFA.MaxAttempts,
			VerifyCredentials: e.verifyCredentials,
		},
		PasswordReset: e.passwordResetDeps(),
	}

	if consumer, ok := e.store.(revocation.Consumer); ok {
		deps.Refresh.Consumer = consumer
	}
	if e.config.Security.CheckUserOnRefresh && e.users != nil {
		deps.Refresh.CheckSubject = func(ctx context.Context, subject string) error {
			_, err := e.users.LoadUser(ctx, subject)
			return err
		}
	}
	if e.mfaSender != nil {
		deps.MFA.SendCode = func(ctx context.Context, p flows.SignInPrincipal, code string) error {
			return e.mfaSender.SendMFACode(ctx, Principal{Subject: p.Subject, Authorities: p.Authorities}, code)
		}
	}
	if e.users != nil {
		deps.MFA.LoadSubject = func(ctx context.Context, subject string) (string, error) {
			user, err := e.users.LoadUser(ctx, subject)
			if err != nil {
				return "", err
			}
			return user.Username, nil
		}
	}

	return deps
}

func (e *Engine) verifyCredentials(ctx context.Context, username, password string) (flows.SignInPrincipal, error) {
	if e.verifier == nil {
		return flows.SignInPrincipal{}, ErrEngineNotReady
	}
	p, err := e.verifier.VerifyCredentials(ctx, username, password)
	if err != nil {
		return flows.SignInPrincipal{}, err
	}
	if p.Subject == "" {
		return flows.SignInPrincipal{}, fmt.Errorf("%w: verifier returned empty subject", ErrInvalidCredentials)
	}
	return flows.SignInPrincipal{Subject: p.Subject, Authorities: p.Authorities}, nil
}

func unavailable(sentinel, err error) error {
	return fmt.Errorf("%w: %v", sentinel, err)
}
