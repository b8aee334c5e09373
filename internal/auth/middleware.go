package auth

import (
	"context"
	"log"
	"net/http"
)

type contextKey string

const userContextKey contextKey = "user"

// CookieName is the cookie that carries the session token.
const CookieName = "auth-token"

// Middleware creates a middleware that resolves the session cookie into an
// identity. Every failure path (missing cookie, malformed token, bad
// signature, expired token) produces the same 401 response; the reason is
// only logged.
func Middleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := tm.Verify(cookie.Value)
			if err != nil {
				log.Printf("[AUTH] rejected token for %s %s: %v", r.Method, r.URL.Path, err)
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext retrieves the verified claims from the request context.
func GetUserFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	return claims, ok
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"Unauthorized"}`))
}
