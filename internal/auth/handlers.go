package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
	"golang.org/x/crypto/bcrypt"

	"sf-clicktask-backend/internal/analytics"
	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/respond"
	"sf-clicktask-backend/internal/storage"
)

type Store interface {
	storage.UserStore
	storage.EventRecorder
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req *LoginRequest) Validate() error {
	req.Username = strings.TrimSpace(req.Username)

	var errs criterio.FieldErrorsBuilder
	if req.Username == "" {
		errs = errs.Append("username", errors.New("is required"))
	}
	if req.Password == "" {
		errs = errs.Append("password", errors.New("is required"))
	}
	return errs.ToError()
}

// EnsureUser creates the user with a bcrypt hash of password unless one with
// that name already exists.
func EnsureUser(ctx context.Context, users storage.UserStore, username, password string) (storage.User, error) {
	u, err := users.GetUserByUsername(ctx, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err = users.CreateUser(ctx, username, string(hash))
	if errors.Is(err, storage.ErrDuplicate) {
		return users.GetUserByUsername(ctx, username)
	}
	return u, err
}

func LoginHandler(store Store, secret []byte, ttl time.Duration) http.HandlerFunc {
	logger := logging.Component("auth")
	return func(w http.ResponseWriter, r *http.Request) {
		var body LoginRequest
		if err := respond.Decode(r, &body); err != nil {
			respond.Invalid(w, "Invalid login data", err)
			return
		}
		if err := body.Validate(); err != nil {
			respond.Invalid(w, "Invalid login data", err)
			return
		}

		u, err := store.GetUserByUsername(r.Context(), body.Username)
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to log in", err)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(body.Password)) != nil {
			respond.Error(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}

		token, err := GenerateToken(secret, u.ID, u.Username, ttl)
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to log in", err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(ttl.Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		env := analytics.FromRequest(r)
		env.UserID = u.ID
		analytics.Log(r.Context(), store, env, "user_logged_in", nil)

		respond.OK(w, map[string]any{
			"user":  u,
			"token": token,
		})
	}
}

// StatusHandler reports the logged in user. It must sit behind
// Middleware.Require.
func StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		respond.OK(w, map[string]any{
			"authenticated": true,
			"user":          storage.User{ID: c.UserID, Username: c.Username},
		})
	}
}
