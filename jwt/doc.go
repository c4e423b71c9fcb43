// Package jwt issues and verifies the compact HS256 tokens used for access,
// refresh, and mfa_pending credentials.
//
// Verification is a pure function of the token string, the process signing
// key, and the clock. Every failure is reported as one of ErrTokenMalformed,
// ErrTokenExpired, ErrTokenInvalidSignature, or ErrTokenUnsupportedAlgorithm so
// callers can log the distinction while treating all of them as "invalid".
package jwt
