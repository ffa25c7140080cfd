package auth

import (
	"net/http"

	"sf-clicktask-backend/internal/respond"
)

// LogoutHandler clears the token cookie. Tokens are stateless, so a client
// holding a bearer token simply drops it.
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		respond.OK(w, map[string]any{"success": true})
	}
}
