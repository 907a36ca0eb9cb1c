// Package api implements the Fehu REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/halvard/fehu/internal/auth"
)

type ctxKey int

const identityKey ctxKey = 0

// SessionCookie is the cookie carrying the session token for browser
// clients; API clients send "Authorization: Bearer <token>" instead.
const SessionCookie = "fehu_session"

// SessionMiddleware resolves the request's session token (bearer header
// or cookie) into an identity on the request context. It never rejects;
// RequireAuth and RequireRole do that. When enabled is false the whole
// gate is off and every request runs as a synthetic admin (local dev).
func SessionMiddleware(sessions *auth.SessionStore, enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				ctx := context.WithValue(r.Context(), identityKey,
					auth.Identity{ID: 0, Username: "dev", Role: auth.RoleAdmin})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := bearerToken(r)
			if token == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					token = c.Value
				}
			}
			if token != "" {
				if id, ok := sessions.Resolve(token); ok {
					ctx := context.WithValue(r.Context(), identityKey, id)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests without a resolved identity.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeError(w, r, http.StatusUnauthorized, nil, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects authenticated requests whose identity lacks role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, nil, "Authentication required")
				return
			}
			if id.Role != role {
				writeError(w, r, http.StatusForbidden, nil, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFrom extracts the resolved identity from ctx.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
