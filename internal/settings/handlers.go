package settings

import (
	"net/http"

	"sf-clicktask-backend/internal/analytics"
	"sf-clicktask-backend/internal/logging"
	"sf-clicktask-backend/internal/respond"
	"sf-clicktask-backend/internal/storage"
)

type Store interface {
	storage.SettingsStore
	storage.EventRecorder
}

func GetSettingsHandler(store Store) http.HandlerFunc {
	logger := logging.Component("settings")
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := store.GetSettings(r.Context())
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to fetch settings", err)
			return
		}
		respond.OK(w, s)
	}
}

// UpdateSettingsHandler merges the fields present in the body into the
// singleton settings row.
func UpdateSettingsHandler(store Store) http.HandlerFunc {
	logger := logging.Component("settings")
	return func(w http.ResponseWriter, r *http.Request) {
		var patch storage.SettingsPatch
		if err := respond.Decode(r, &patch); err != nil {
			respond.Invalid(w, "Invalid settings data", err)
			return
		}

		prev, err := store.GetSettings(r.Context())
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to update settings", err)
			return
		}

		s, err := store.UpdateSettings(r.Context(), patch)
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to update settings", err)
			return
		}

		analytics.LogRequest(r, store, "settings_updated", map[string]any{
			"changed": map[string]any{
				"autoTaskGeneration": prev.AutoTaskGeneration != s.AutoTaskGeneration,
				"realTimeSync":       prev.RealTimeSync != s.RealTimeSync,
				"captureActive":      prev.CaptureActive != s.CaptureActive,
			},
		})

		respond.OK(w, s)
	}
}

// ResetSettingsHandler restores the install-time defaults.
func ResetSettingsHandler(store Store) http.HandlerFunc {
	logger := logging.Component("settings")
	return func(w http.ResponseWriter, r *http.Request) {
		d := storage.DefaultSettings()
		s, err := store.UpdateSettings(r.Context(), storage.SettingsPatch{
			AutoTaskGeneration: &d.AutoTaskGeneration,
			RealTimeSync:       &d.RealTimeSync,
			CaptureActive:      &d.CaptureActive,
		})
		if err != nil {
			respond.Internal(w, logging.FromContext(r.Context(), logger), "Failed to reset settings", err)
			return
		}

		analytics.LogRequest(r, store, "settings_reset", nil)
		respond.OK(w, s)
	}
}
