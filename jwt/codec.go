package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrTokenMalformed reports a token that cannot be decoded or lacks required claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired reports a token whose expiry is at or before the current time.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalidSignature reports a token whose MAC does not match the process key.
	ErrTokenInvalidSignature = errors.New("token signature invalid")
	// ErrTokenUnsupportedAlgorithm reports a token signed with anything other than HS256.
	ErrTokenUnsupportedAlgorithm = errors.New("token algorithm unsupported")
	// ErrInvalidTTL is returned by Issue for negative lifetimes.
	ErrInvalidTTL = errors.New("invalid token ttl")
)

// Kind separates access credentials from refresh credentials.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// AuthType is the auth_type claim carried by access tokens.
type AuthType string

const (
	AuthStandard   AuthType = "standard"
	AuthMFAPending AuthType = "mfa_pending"
)

// ClaimSet is the small claim set embedded by Issue.
type ClaimSet struct {
	Kind     Kind
	AuthType AuthType
}

// Verified is the result of a successful Verify.
type Verified struct {
	ID        string
	Subject   string
	Kind      Kind
	AuthType  AuthType
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config configures a Codec. SigningKey must be at least MinKeySize bytes.
type Config struct {
	SigningKey []byte
	Issuer     string
	Now        func() time.Time
}

// Codec signs and verifies tokens with one process-wide symmetric key.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	key    []byte
	issuer string
	now    func() time.Time
	parser *gjwt.Parser
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.SigningKey) < MinKeySize {
		return nil, ErrKeyTooShort
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	issuer := strings.TrimSpace(cfg.Issuer)

	key := make([]byte, len(cfg.SigningKey))
	copy(key, cfg.SigningKey)

	return &Codec{
		key:    key,
		issuer: issuer,
		now:    now,
		// Claims are checked in Verify so expiry compares whole milliseconds.
		parser: gjwt.NewParser(gjwt.WithoutClaimsValidation()),
	}, nil
}

// Issue signs a token for subject with issuedAt = now and expiresAt =
// issuedAt + ttl, both truncated to the millisecond. A zero ttl yields a token
// that is already expired.
func (c *Codec) Issue(subject string, ttl time.Duration, set ClaimSet) (string, error) {
	if ttl < 0 {
		return "", ErrInvalidTTL
	}
	if subject == "" {
		return "", errors.New("token subject is required")
	}

	issuedAt := NewTimestamp(c.now())
	claims := Claims{
		AuthType:  set.AuthType,
		Kind:      set.Kind,
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    c.issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: NewTimestamp(issuedAt.Add(ttl)),
	}

	return gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify checks algorithm, signature, and expiry and returns the token's claims.
func (c *Codec) Verify(token string) (*Verified, error) {
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, c.keyFunc)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, ErrTokenMalformed
	}

	now := c.now()
	if !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	if claims.IssuedAt.After(now) {
		return nil, fmt.Errorf("%w: issued in the future", ErrTokenMalformed)
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenMalformed, claims.Issuer)
	}

	return &Verified{
		ID:        claims.ID,
		Subject:   claims.Subject,
		Kind:      claims.Kind,
		AuthType:  claims.AuthType,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SubjectOf returns the subject of a verifiable token.
func (c *Codec) SubjectOf(token string) (string, error) {
	verified, err := c.Verify(token)
	if err != nil {
		return "", err
	}
	return verified.Subject, nil
}

// Now returns the codec clock reading used for issuance and expiry checks.
func (c *Codec) Now() time.Time {
	return c.now()
}

func (c *Codec) keyFunc(t *gjwt.Token) (interface{}, error) {
	if t.Method != gjwt.SigningMethodHS256 {
		return nil, fmt.Errorf("%w: %s", ErrTokenUnsupportedAlgorithm, t.Method.Alg())
	}
	return c.key, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrTokenUnsupportedAlgorithm), errors.Is(err, gjwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenUnsupportedAlgorithm, err)
	case errors.Is(err, gjwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, gjwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenInvalidSignature, err)
	case errors.Is(err, gjwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
