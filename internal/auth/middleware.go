package auth

import (
	"context"
	"net/http"
	"strings"

	"sf-clicktask-backend/internal/analytics"
	"sf-clicktask-backend/internal/respond"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// CookieName carries the token for browser clients that cannot set headers.
const CookieName = "clicktask_token"

type Middleware struct {
	secret   []byte
	required bool
}

// New returns a middleware that rejects anonymous requests only when
// required is set. Valid tokens are always attached to the context.
func New(secret []byte, required bool) Middleware {
	return Middleware{secret: secret, required: required}
}

func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, m.required)
}

// Require rejects anonymous requests regardless of configuration.
func (m Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return m.wrap(next, true)
}

func (m Middleware) wrap(next http.HandlerFunc, required bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := tokenFromRequest(r)
		if tokenString == "" {
			if required {
				respond.Error(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			next(w, r)
			return
		}

		claims, err := ParseToken(m.secret, tokenString)
		if err != nil {
			if required {
				respond.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		ctx = analytics.WithUserID(ctx, claims.UserID)

		next(w, r.WithContext(ctx))
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0, false
	}
	return c.UserID, true
}
