package flows

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/tokenlife/jwt"
	"github.com/MrEthical07/tokenlife/revocation"
)

// Codec is the token codec surface used by flows.
type Codec interface {
	Issue(subject string, ttl time.Duration, set jwt.ClaimSet) (string, error)
	Verify(token string) (*jwt.Verified, error)
	Now() time.Time
}

// TokenDeps is shared by every token flow.
type TokenDeps struct {
	Codec      Codec
	Store      revocation.Store
	Keys       revocation.KeySpace
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Logger     *zap.Logger
}

func (d TokenDeps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// PairFailureKind classifies token pair issuance failures.
type PairFailureKind int

const (
	PairFailureNone PairFailureKind = iota
	PairFailureSign
	PairFailureStore
)

// PairResult carries a freshly minted access/refresh pair.
type PairResult struct {
	Failure      PairFailureKind
	Err          error
	AccessToken  string
	RefreshToken string
}

// IssuePair mints a standard access token and a refresh token for subject and
// overwrites the subject's refresh pointer with the new refresh token.
func IssuePair(ctx context.Context, subject string, deps TokenDeps) PairResult {
	access, err := deps.Codec.Issue(subject, deps.AccessTTL, jwt.ClaimSet{
		Kind:     jwt.KindAccess,
		AuthType: jwt.AuthStandard,
	})
	if err != nil {
		return PairResult{Failure: PairFailureSign, Err: err}
	}
	refresh, err := deps.Codec.Issue(subject, deps.RefreshTTL, jwt.ClaimSet{Kind: jwt.KindRefresh})
	if err != nil {
		return PairResult{Failure: PairFailureSign, Err: err}
	}

	if err := deps.Store.Set(ctx, deps.Keys.RefreshPointer(subject), refresh, deps.RefreshTTL); err != nil {
		return PairResult{Failure: PairFailureStore, Err: err}
	}

	return PairResult{AccessToken: access, RefreshToken: refresh}
}

// SignInPrincipal is the flow-local authenticated principal.
type SignInPrincipal struct {
	Subject     string
	Authorities []string
}

// SignInFailureKind classifies sign-in failures.
type SignInFailureKind int

const (
	SignInFailureNone SignInFailureKind = iota
	SignInFailureCredentials
	SignInFailureSign
	SignInFailureStore
)

// SignInResult carries the issued pair or failure metadata.
type SignInResult struct {
	Failure      SignInFailureKind
	Err          error
	Principal    SignInPrincipal
	AccessToken  string
	RefreshToken string
}

// SignInDeps captures sign-in dependencies.
type SignInDeps struct {
	Tokens            TokenDeps
	VerifyCredentials func(ctx context.Context, username, password string) (SignInPrincipal, error)
}

// RunSignIn verifies credentials and issues a token pair.
func RunSignIn(ctx context.Context, username, password string, deps SignInDeps) SignInResult {
	principal, err := deps.VerifyCredentials(ctx, username, password)
	if err != nil {
		return SignInResult{Failure: SignInFailureCredentials, Err: err}
	}

	pair := IssuePair(ctx, principal.Subject, deps.Tokens)
	switch pair.Failure {
	case PairFailureSign:
		return SignInResult{Failure: SignInFailureSign, Err: pair.Err, Principal: principal}
	case PairFailureStore:
		return SignInResult{Failure: SignInFailureStore, Err: pair.Err, Principal: principal}
	}

	return SignInResult{
		Principal:    principal,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

// ValidateFailureKind classifies token validation failures.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureStore
	ValidateFailureBlacklisted
	ValidateFailureToken
	ValidateFailureKindMismatch
)

// ValidateResult carries verified claims or failure metadata.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Token   *jwt.Verified
}

// RunValidate performs one blacklist read, then verifies token and checks
// that it is of the wanted kind.
func RunValidate(ctx context.Context, token string, want jwt.Kind, deps TokenDeps) ValidateResult {
	blacklisted, err := deps.Store.Exists(ctx, deps.Keys.Blacklist(token))
	if err != nil {
		return ValidateResult{Failure: ValidateFailureStore, Err: err}
	}
	if blacklisted {
		return ValidateResult{Failure: ValidateFailureBlacklisted}
	}

	verified, err := deps.Codec.Verify(token)
	if err != nil {
		deps.logger().Debug("token rejected", zap.Error(err))
		return ValidateResult{Failure: ValidateFailureToken, Err: err}
	}
	if verified.Kind != want {
		return ValidateResult{Failure: ValidateFailureKindMismatch, Token: verified}
	}

	return ValidateResult{Token: verified}
}

// BlacklistFailureKind classifies blacklist failures.
type BlacklistFailureKind int

const (
	BlacklistFailureNone BlacklistFailureKind = iota
	BlacklistFailureToken
	BlacklistFailureStore
)

// BlacklistResult reports the revoked token's subject or failure metadata.
type BlacklistResult struct {
	Failure BlacklistFailureKind
	Err     error
	Subject string
}

// RunBlacklist verifies token and records it as revoked for its remaining
// lifetime. Repeating the call rewrites the same entry.
func RunBlacklist(ctx context.Context, token string, deps TokenDeps) BlacklistResult {
	verified, err := deps.Codec.Verify(token)
	if err != nil {
		return BlacklistResult{Failure: BlacklistFailureToken, Err: err}
	}

	if err := revoke(ctx, token, verified, deps); err != nil {
		return BlacklistResult{Failure: BlacklistFailureStore, Err: err, Subject: verified.Subject}
	}
	return BlacklistResult{Subject: verified.Subject}
}

func revoke(ctx context.Context, token string, verified *jwt.Verified, deps TokenDeps) error {
	remaining := verified.ExpiresAt.Sub(deps.Codec.Now())
	if remaining <= 0 {
		// Already expired tokens are rejected by the codec on their own.
		return nil
	}
	return deps.Store.Set(ctx, deps.Keys.Blacklist(token), revocation.BlacklistValue, remaining)
}
