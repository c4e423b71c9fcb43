package jwt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// Timestamp is a JWT NumericDate with millisecond precision. It encodes as
// seconds with at most three fractional digits and decodes back to the exact
// millisecond, without touching golang-jwt's package-level TimePrecision.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to the millisecond.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.Round(0).Truncate(time.Millisecond)}
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	ms := ts.UnixMilli()
	switch {
	case ms < 0:
		return []byte(strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)), nil
	case ms%1000 == 0:
		return strconv.AppendInt(nil, ms/1000, 10), nil
	default:
		return fmt.Appendf(nil, "%d.%03d", ms/1000, ms%1000), nil
	}
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("numeric date: %w", err)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("numeric date: %w", err)
	}
	ts.Time = time.UnixMilli(int64(math.Round(f * 1000)))
	return nil
}

func (ts *Timestamp) numeric() *gjwt.NumericDate {
	if ts == nil {
		return nil
	}
	return &gjwt.NumericDate{Time: ts.Time}
}

// Claims is the wire form of every token issued by a Codec.
type Claims struct {
	AuthType  AuthType   `json:"auth_type,omitempty"`
	Kind      Kind       `json:"tku,omitempty"`
	ID        string     `json:"jti,omitempty"`
	Subject   string     `json:"sub,omitempty"`
	Issuer    string     `json:"iss,omitempty"`
	IssuedAt  *Timestamp `json:"iat,omitempty"`
	ExpiresAt *Timestamp `json:"exp,omitempty"`
}

func (c Claims) GetExpirationTime() (*gjwt.NumericDate, error) { return c.ExpiresAt.numeric(), nil }
func (c Claims) GetIssuedAt() (*gjwt.NumericDate, error)       { return c.IssuedAt.numeric(), nil }
func (c Claims) GetNotBefore() (*gjwt.NumericDate, error)      { return nil, nil }
func (c Claims) GetIssuer() (string, error)                    { return c.Issuer, nil }
func (c Claims) GetSubject() (string, error)                   { return c.Subject, nil }
func (c Claims) GetAudience() (gjwt.ClaimStrings, error)       { return nil, nil }
