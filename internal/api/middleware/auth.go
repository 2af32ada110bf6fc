package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studyhub/internal/api/response"
	"studyhub/internal/repository/redis"
	"studyhub/internal/security"
)

type contextKey string

const (
	identityKey    contextKey = "identity"
	sessionCodeKey contextKey = "sessionCode"
)

// AuthMiddleware validates identity tokens from the external provider.
type AuthMiddleware struct {
	verifier *security.TokenVerifier
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(verifier *security.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Authenticate validates the bearer token and stores the asserted
// identity in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		identity, err := m.verifier.Verify(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, *identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetIdentity gets the caller's identity from context.
func GetIdentity(ctx context.Context) (security.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(security.Identity)
	return identity, ok
}

// WithIdentity returns a context carrying the identity. Used by tests.
func WithIdentity(ctx context.Context, identity security.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetSessionCode gets the session code from context.
func GetSessionCode(ctx context.Context) (string, bool) {
	code, ok := ctx.Value(sessionCodeKey).(string)
	return code, ok
}

// WithSessionCode returns a context carrying the session code. Used by tests.
func WithSessionCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, sessionCodeKey, code)
}

// SessionContext extracts and validates the session code from the URL.
func SessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "sessionCode")
		if !security.ValidSessionCode(code) {
			response.BadRequest(w, "invalid session code")
			return
		}

		ctx := context.WithValue(r.Context(), sessionCodeKey, code)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	rateLimiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting based on user ID
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentity(r.Context())
		if !ok {
			response.Unauthorized(w, "unauthorized")
			return
		}

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), identity.UserID)
		if err != nil {
			// If rate limiter fails, allow the request rather than block
			// everyone on a limiter hiccup.
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.UTC().Format(time.RFC3339))

		if !allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
