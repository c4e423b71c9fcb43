// Package internal contains helpers private to tokenlife: random code and
// token generation and constant-time comparison.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: orchestrators for every Engine token and reset operation
//   - logging: zap logger construction for services
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenlife API.
package internal
