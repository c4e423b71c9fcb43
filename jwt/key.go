package jwt

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

// MinKeySize is the smallest accepted HS256 key, in bytes.
const MinKeySize = 32

// ErrKeyTooShort is returned when signing key material is below MinKeySize.
var ErrKeyTooShort = errors.New("signing key must be at least 32 bytes")

// KeyFromBase64 decodes base64 signing key material (standard or URL alphabet,
// padded or not) and enforces MinKeySize.
func KeyFromBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("signing key is empty")
	}

	var (
		key []byte
		err error
	)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		key, err = enc.DecodeString(encoded)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, errors.New("signing key is not valid base64")
	}
	if len(key) < MinKeySize {
		return nil, ErrKeyTooShort
	}
	return key, nil
}

// GenerateKey returns MinKeySize random bytes suitable for HS256.
func GenerateKey() ([]byte, error) {
	key := make([]byte, MinKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// LoadKey resolves signing key material once at startup. An inline base64
// value wins over keyFile; keyFile may hold base64 text or raw bytes.
func LoadKey(inline, keyFile string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return KeyFromBase64(inline)
	}
	if keyFile == "" {
		return nil, errors.New("no signing key configured")
	}

	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	if key, err := KeyFromBase64(string(data)); err == nil {
		return key, nil
	}
	if len(data) < MinKeySize {
		return nil, ErrKeyTooShort
	}
	return data, nil
}
