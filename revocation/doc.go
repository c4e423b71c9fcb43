// Package revocation provides the key-value capability behind token revocation,
// refresh-token pointers, and MFA codes.
//
// # Key layout
//
// All keys are built through [KeySpace]:
//
//	blacklist:<token>         "1", TTL = remaining token lifetime
//	refresh_token:<subject>   current refresh token string
//	mfa_code:<subject>        outstanding one-time code
//
// An optional prefix is prepended so several deployments can share one Redis.
//
// # Atomicity
//
// Every [Store] operation is atomic for a single key. No cross-key transaction
// is assumed. Stores that can also compare-and-delete in one step implement
// [Consumer]; [RedisStore] does so with a Lua script.
//
// # What this package must NOT do
//
//   - Parse or verify tokens.
//   - Decide whether a token is valid.
package revocation
