// Package tokenlife issues, rotates, and revokes signed access and refresh
// tokens, runs a two-phase MFA handshake, and manages single-use password
// reset tokens.
//
// An [Engine] is assembled once with [Builder] and is safe for concurrent use.
// Tokens are HS256 JWTs signed with one process-wide key. Revocation state
// lives in a shared key-value store (Redis in production) under these key
// families:
//
//	blacklist:<token>          revoked until the token's own expiry
//	refresh_token:<subject>    the subject's most recently issued refresh token
//	mfa_code:<subject>         the subject's outstanding one-time code
//	mfa_attempts:<subject>     mismatched codes counted against MFA.MaxAttempts
//
// # Architecture boundaries
//
// tokenlife is the public surface: [Engine], [Builder], [Config], errors, and
// value types. Flow orchestration and audit dispatch live under internal/.
// Persistence and delivery are collaborators ([UserDirectory],
// [ResetRequestStore], [Notifier], [MFACodeSender]) implemented by the
// storage/ and notify/ packages or by the caller.
//
// # Rotation guarantees
//
// By default Refresh mints the new pair before blacklisting the presented
// token, so two concurrent refreshes of the same token may both succeed. With
// Security.StrictRefreshRotation the refresh pointer is consumed with an
// atomic compare-and-delete first and exactly one of them wins.
package tokenlife
