// Package flows contains the orchestrators behind every Engine token and
// password-reset operation.
//
// Each Run* function accepts a typed dependency struct and returns a result
// carrying either the outcome or a failure kind. The root package maps failure
// kinds to sentinel errors, metrics, and audit events, which keeps the Engine
// thin and lets these flows be tested with in-memory dependencies.
//
// # Architecture boundaries
//
// Flows coordinate the token codec, the revocation store, and the caller's
// collaborators. They do NOT own any of these resources; ownership stays with
// the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import tokenlife (to avoid import cycles).
package flows
