// Package middleware adapts tokenlife.Engine to net/http.
//
// [Guard] reads the bearer token from the Authorization header, calls
// Engine.Authenticate, and stores the [tokenlife.AccessResult] in the request
// context. [RequestContext] copies the client IP and request id into the
// context so audit events can carry them.
//
// The package makes no authentication decisions of its own; it only maps
// engine errors to HTTP status codes.
package middleware
