package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife/internal"
	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/revocation"
)

// MFAFailureKind classifies MFA flow failures.
type MFAFailureKind int

const (
	MFAFailureNone MFAFailureKind = iota
	MFAFailureCredentials
	MFAFailureSign
	MFAFailureCodeGeneration
	MFAFailureStore
	MFAFailureDelivery
	MFAFailureCodeInvalid
	MFAFailureCodeExpired
	MFAFailurePendingToken
	MFAFailureUser
)

// MFADeps captures the two-phase MFA handshake dependencies.
type MFADeps struct {
	Tokens     TokenDeps
	CodeTTL    time.Duration
	CodeDigits int
	// MaxAttempts mismatches discard the outstanding code. Zero disables the limit.
	MaxAttempts int

	VerifyCredentials func(ctx context.Context, username, password string) (SignInPrincipal, error)
	// SendCode delivers the code out of band. Nil skips delivery.
	SendCode func(ctx context.Context, principal SignInPrincipal, code string) error
	// LoadSubject resolves the subject to the username embedded in the access token.
	LoadSubject func(ctx context.Context, subject string) (string, error)
}

// BeginMFAResult carries the pending token or failure metadata.
type BeginMFAResult struct {
	Failure      MFAFailureKind
	Err          error
	Principal    SignInPrincipal
	PendingToken string
	ExpiresAt    time.Time
}

// RunBeginMFA verifies credentials, issues an mfa_pending token, and stores a
// fresh code for the subject, replacing any outstanding one.
func RunBeginMFA(ctx context.Context, username, password string, deps MFADeps) BeginMFAResult {
	principal, err := deps.VerifyCredentials(ctx, username, password)
	if err != nil {
		return BeginMFAResult{Failure: MFAFailureCredentials, Err: err}
	}

	tokens := deps.Tokens
	issuedAt := tokens.Codec.Now()
	pending, err := tokens.Codec.Issue(principal.Subject, deps.CodeTTL, jwt.ClaimSet{
		Kind:     jwt.KindAccess,
		AuthType: jwt.AuthMFAPending,
	})
	if err != nil {
		return BeginMFAResult{Failure: MFAFailureSign, Err: err, Principal: principal}
	}

	code, err := internal.NewOTP(deps.CodeDigits)
	if err != nil {
		return BeginMFAResult{Failure: MFAFailureCodeGeneration, Err: err, Principal: principal}
	}
	if err := tokens.Store.Delete(ctx, tokens.Keys.MFAAttempts(principal.Subject)); err != nil {
		return BeginMFAResult{Failure: MFAFailureStore, Err: err, Principal: principal}
	}
	if err := tokens.Store.Set(ctx, tokens.Keys.MFACode(principal.Subject), code, deps.CodeTTL); err != nil {
		return BeginMFAResult{Failure: MFAFailureStore, Err: err, Principal: principal}
	}

	result := BeginMFAResult{
		Principal:    principal,
		PendingToken: pending,
		ExpiresAt:    issuedAt.Add(deps.CodeTTL),
	}
	if deps.SendCode != nil {
		if err := deps.SendCode(ctx, principal, code); err != nil {
			result.Failure = MFAFailureDelivery
			result.Err = err
		}
	}
	return result
}

// CompleteMFAResult carries the standard access token or failure metadata.
type CompleteMFAResult struct {
	Failure     MFAFailureKind
	Err         error
	Subject     string
	AccessToken string
	// AttemptsExhausted is set when this mismatch discarded the code.
	AttemptsExhausted bool
}

// RunCompleteMFA consumes the subject's outstanding code when it matches and
// issues a standard access token. A mismatch leaves the code in place until
// MaxAttempts mismatches have been counted, then discards it.
func RunCompleteMFA(ctx context.Context, subject, code string, deps MFADeps) CompleteMFAResult {
	if subject == "" || code == "" {
		return CompleteMFAResult{Failure: MFAFailureCodeInvalid, Subject: subject}
	}

	tokens := deps.Tokens
	key := tokens.Keys.MFACode(subject)

	matched, err := consumeIfEqual(ctx, tokens.Store, key, code)
	if err != nil {
		return CompleteMFAResult{Failure: MFAFailureStore, Err: err, Subject: subject}
	}
	if !matched {
		return recordMismatch(ctx, subject, deps)
	}
	if deps.MaxAttempts > 0 {
		if err := tokens.Store.Delete(ctx, tokens.Keys.MFAAttempts(subject)); err != nil {
			tokens.logger().Warn("mfa attempt counter not cleared", zap.String("subject", subject), zap.Error(err))
		}
	}

	username := subject
	if deps.LoadSubject != nil {
		username, err = deps.LoadSubject(ctx, subject)
		if err != nil {
			return CompleteMFAResult{Failure: MFAFailureUser, Err: err, Subject: subject}
		}
	}

	access, err := tokens.Codec.Issue(username, tokens.AccessTTL, jwt.ClaimSet{
		Kind:     jwt.KindAccess,
		AuthType: jwt.AuthStandard,
	})
	if err != nil {
		return CompleteMFAResult{Failure: MFAFailureSign, Err: err, Subject: subject}
	}
	return CompleteMFAResult{Subject: username, AccessToken: access}
}

func recordMismatch(ctx context.Context, subject string, deps MFADeps) CompleteMFAResult {
	if deps.MaxAttempts <= 0 {
		return CompleteMFAResult{Failure: MFAFailureCodeInvalid, Subject: subject}
	}

	tokens := deps.Tokens
	attemptsKey := tokens.Keys.MFAAttempts(subject)
	attempts, err := incrAttempts(ctx, tokens.Store, attemptsKey, deps.CodeTTL)
	if err != nil {
		return CompleteMFAResult{Failure: MFAFailureStore, Err: err, Subject: subject}
	}
	if attempts < int64(deps.MaxAttempts) {
		return CompleteMFAResult{Failure: MFAFailureCodeInvalid, Subject: subject}
	}

	if err := tokens.Store.Delete(ctx, tokens.Keys.MFACode(subject)); err != nil {
		return CompleteMFAResult{Failure: MFAFailureStore, Err: err, Subject: subject}
	}
	if err := tokens.Store.Delete(ctx, attemptsKey); err != nil {
		tokens.logger().Warn("mfa attempt counter not cleared", zap.String("subject", subject), zap.Error(err))
	}
	return CompleteMFAResult{Failure: MFAFailureCodeInvalid, Subject: subject, AttemptsExhausted: true}
}

// incrAttempts counts one mismatch. Stores without revocation.Counter fall
// back to a read-modify-write that can undercount under concurrency.
func incrAttempts(ctx context.Context, store revocation.Store, key string, ttl time.Duration) (int64, error) {
	if counter, ok := store.(revocation.Counter); ok {
		return counter.Incr(ctx, key, ttl)
	}

	stored, found, err := store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int64
	if found {
		n, _ = strconv.ParseInt(stored, 10, 64)
	}
	n++
	if err := store.Set(ctx, key, strconv.FormatInt(n, 10), ttl); err != nil {
		return 0, err
	}
	return n, nil
}

// RunCompleteMFAWithToken resolves the subject from an mfa_pending token,
// completes MFA, and revokes the pending token.
func RunCompleteMFAWithToken(ctx context.Context, pendingToken, code string, deps MFADeps) CompleteMFAResult {
	tokens := deps.Tokens

	verified, err := tokens.Codec.Verify(pendingToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return CompleteMFAResult{Failure: MFAFailureCodeExpired, Err: err}
		}
		return CompleteMFAResult{Failure: MFAFailurePendingToken, Err: err}
	}
	if verified.Kind != jwt.KindAccess || verified.AuthType != jwt.AuthMFAPending {
		return CompleteMFAResult{Failure: MFAFailurePendingToken, Subject: verified.Subject}
	}

	blacklisted, err := tokens.Store.Exists(ctx, tokens.Keys.Blacklist(pendingToken))
	if err != nil {
		return CompleteMFAResult{Failure: MFAFailureStore, Err: err, Subject: verified.Subject}
	}
	if blacklisted {
		return CompleteMFAResult{Failure: MFAFailurePendingToken, Subject: verified.Subject}
	}

	result := RunCompleteMFA(ctx, verified.Subject, code, deps)
	if result.Failure != MFAFailureNone {
		return result
	}

	if err := revoke(ctx, pendingToken, verified, tokens); err != nil {
		tokens.logger().Warn("mfa pending token not revoked", zap.String("subject", verified.Subject), zap.Error(err))
	}
	return result
}
