package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenlife"
)

type accessResultContextKey struct{}

// AccessResultFromContext returns the result stored by [Guard].
func AccessResultFromContext(ctx context.Context) (*tokenlife.AccessResult, bool) {
	res, ok := ctx.Value(accessResultContextKey{}).(*tokenlife.AccessResult)
	return res, ok
}

// Guard rejects requests without a valid, unrevoked standard access token.
// MFA-pending tokens get 401 with an "mfa required" body; an unreachable
// revocation store gets 503.
func Guard(engine *tokenlife.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Authenticate(r.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, tokenlife.ErrMFARequired):
				http.Error(w, "mfa required", http.StatusUnauthorized)
				return
			case errors.Is(err, tokenlife.ErrRevocationUnavailable):
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			default:
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), accessResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestContext attaches the client IP and the X-Request-ID header to the
// request context for audit events.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if ip := clientIP(r); ip != "" {
			ctx = tokenlife.WithClientIP(ctx, ip)
		}
		if id := r.Header.Get("X-Request-ID"); id != "" {
			ctx = tokenlife.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func BearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
