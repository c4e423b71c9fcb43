package password

import "strings"

// Scheme is a hasher that can also check and grade its own digests.
type Scheme interface {
	Hash(plain string) (string, error)
	Verify(plain, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

// Multi hashes with Primary and verifies digests of either scheme, picked by
// prefix. Legacy may be nil.
type Multi struct {
	Primary *Argon2
	Legacy  *Bcrypt
}

func (m Multi) Hash(plain string) (string, error) {
	return m.Primary.Hash(plain)
}

func (m Multi) Verify(plain, encodedHash string) (bool, error) {
	scheme, err := m.schemeFor(encodedHash)
	if err != nil {
		return false, err
	}
	return scheme.Verify(plain, encodedHash)
}

// NeedsUpgrade is true for any digest not produced by Primary's current parameters.
func (m Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	scheme, err := m.schemeFor(encodedHash)
	if err != nil {
		return false, err
	}
	return scheme.NeedsUpgrade(encodedHash)
}

func (m Multi) schemeFor(encodedHash string) (Scheme, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return m.Primary, nil
	case m.Legacy != nil && isBcrypt(encodedHash):
		return m.Legacy, nil
	default:
		return nil, ErrMalformedHash
	}
}
