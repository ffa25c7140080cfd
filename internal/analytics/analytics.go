package analytics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/storage"
)

type CtxKey string

const (
	ctxUserIDKey CtxKey = "analytics_user_id"
)

// Envelope is what we store with every event.
type Envelope struct {
	UserID     int
	RequestID  string
	SessionID  string
	Platform   string
	AppVersion string
}

// FromRequest extracts event envelope fields from request headers.
func FromRequest(r *http.Request) Envelope {
	platform := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Platform")))
	switch platform {
	case "web", "extension", "dashboard":
	default:
		platform = "unknown"
	}

	env := Envelope{
		RequestID:  logging.RequestID(r.Context()),
		SessionID:  strings.TrimSpace(r.Header.Get("X-Session-Id")),
		Platform:   platform,
		AppVersion: strings.TrimSpace(r.Header.Get("X-App-Version")),
	}
	if uid, ok := UserIDFromContext(r.Context()); ok {
		env.UserID = uid
	}
	return env
}

func WithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(ctxUserIDKey)
	if v == nil {
		return 0, false
	}
	uid, ok := v.(int)
	return uid, ok
}

// Log records one analytics event. It never fails the caller: a broken
// recorder only produces a warning. Props must not carry raw captured text.
func Log(ctx context.Context, rec storage.EventRecorder, env Envelope, eventName string, props map[string]any) {
	if eventName == "" || rec == nil {
		return
	}

	err := rec.RecordEvent(ctx, storage.Event{
		Name:       eventName,
		Time:       time.Now().UTC(),
		UserID:     env.UserID,
		RequestID:  env.RequestID,
		SessionID:  env.SessionID,
		Platform:   env.Platform,
		AppVersion: env.AppVersion,
		Properties: props,
	})
	if err != nil {
		l := logging.FromContext(ctx, logging.Component("analytics"))
		l.Warn().Err(err).Str("event", eventName).Msg("failed to record analytics event")
	}
}

// LogRequest is Log with the envelope taken from r.
func LogRequest(r *http.Request, rec storage.EventRecorder, eventName string, props map[string]any) {
	Log(r.Context(), rec, FromRequest(r), eventName, props)
}
