package extension

import (
	"errors"
	"net/http"

	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/respond"
)

// MessagesHandler serves POST /api/extension/messages, the background
// dispatcher over HTTP.
func MessagesHandler(bg *Background) http.HandlerFunc {
	logger := logging.Component("extension")
	return func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		if err := respond.Decode(r, &msg); err != nil {
			respond.Invalid(w, "Invalid message", err)
			return
		}

		out, err := bg.Handle(r.Context(), msg)
		var unknown UnknownActionError
		if errors.As(err, &unknown) {
			respond.Error(w, http.StatusBadRequest, unknown.Error())
			return
		}
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to handle message", err)
			return
		}
		respond.OK(w, out)
	}
}
