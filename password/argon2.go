package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2ID      = "argon2id"
	argon2Prefix  = "$" + argon2ID + "$"
	minMemoryKiB  = 8 * 1024
	minSaltBytes  = 16
	minKeyBytes   = 16
	maxPassBytes  = 1024
	phcFieldCount = 6
)

var (
	// ErrMalformedHash is returned by Verify for digests it cannot parse.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPasswordTooLong guards the KDF against oversized inputs.
	ErrPasswordTooLong = errors.New("password exceeds 1024 bytes")
)

// Config tunes argon2id. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Validate reports the first parameter below the accepted floor.
func (c Config) Validate() error {
	switch {
	case c.Memory < minMemoryKiB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", minMemoryKiB)
	case c.Time < 1:
		return errors.New("argon2 time must be >= 1")
	case c.Parallelism < 1:
		return errors.New("argon2 parallelism must be >= 1")
	case c.SaltLength < minSaltBytes:
		return fmt.Errorf("argon2 salt length must be >= %d", minSaltBytes)
	case c.KeyLength < minKeyBytes:
		return fmt.Errorf("argon2 key length must be >= %d", minKeyBytes)
	}
	return nil
}

// Argon2 hashes passwords into PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
type Argon2 struct {
	cfg Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Argon2{cfg: cfg}, nil
}

// Hash derives a fresh salted digest for plain.
func (a *Argon2) Hash(plain string) (string, error) {
	if len(plain) > maxPassBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(plain), salt, a.cfg.Time, a.cfg.Memory, a.cfg.Parallelism, a.cfg.KeyLength)

	return phcDigest{
		params: a.cfg,
		salt:   salt,
		sum:    sum,
	}.String(), nil
}

// Verify reports whether plain matches an argon2id PHC digest. The parameters
// embedded in the digest are used, not the hasher's own.
func (a *Argon2) Verify(plain, encodedHash string) (bool, error) {
	if len(plain) > maxPassBytes {
		return false, ErrPasswordTooLong
	}
	d, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	sum := argon2.IDKey([]byte(plain), d.salt, d.params.Time, d.params.Memory, d.params.Parallelism, uint32(len(d.sum)))
	return subtle.ConstantTimeCompare(sum, d.sum) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker or
// different parameters than the hasher's current ones.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	d, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	p := d.params
	return p.Memory < a.cfg.Memory ||
		p.Time < a.cfg.Time ||
		p.Parallelism < a.cfg.Parallelism ||
		uint32(len(d.sum)) != a.cfg.KeyLength, nil
}

type phcDigest struct {
	params Config
	salt   []byte
	sum    []byte
}

func (d phcDigest) String() string {
	enc := base64.RawStdEncoding
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID, argon2.Version,
		d.params.Memory, d.params.Time, d.params.Parallelism,
		enc.EncodeToString(d.salt), enc.EncodeToString(d.sum))
}

func parsePHC(encoded string) (phcDigest, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != phcFieldCount || fields[0] != "" || fields[1] != argon2ID {
		return phcDigest{}, ErrMalformedHash
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok {
		return phcDigest{}, ErrMalformedHash
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return phcDigest{}, fmt.Errorf("%w: unsupported argon2 version", ErrMalformedHash)
	}

	var d phcDigest
	if err := parseParams(fields[3], &d.params); err != nil {
		return phcDigest{}, err
	}

	var err error
	if d.salt, err = decodeSegment(fields[4]); err != nil || len(d.salt) < minSaltBytes {
		return phcDigest{}, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if d.sum, err = decodeSegment(fields[5]); err != nil || len(d.sum) == 0 {
		return phcDigest{}, fmt.Errorf("%w: bad digest", ErrMalformedHash)
	}
	d.params.SaltLength = uint32(len(d.salt))
	d.params.KeyLength = uint32(len(d.sum))
	return d, nil
}

// decodeSegment accepts both unpadded (PHC) and padded base64.
func decodeSegment(s string) ([]byte, error) {
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func parseParams(field string, out *Config) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(field, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || v < minMemoryKiB {
				return fmt.Errorf("%w: bad memory", ErrMalformedHash)
			}
			out.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || v < 1 {
				return fmt.Errorf("%w: bad time", ErrMalformedHash)
			}
			out.Time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || v < 1 {
				return fmt.Errorf("%w: bad parallelism", ErrMalformedHash)
			}
			out.Parallelism = uint8(v)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, name)
		}
	}
	if !seen["m"] || !seen["t"] || !seen["p"] {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}
